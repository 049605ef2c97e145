package usecase

import (
	"context"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
	"github.com/operaciones-peru/crm-sunat/pkg/config"
)

// ComprasUseCase listado del registro de compras (RCE). Mismas reglas de
// alcance y paginación que ventas; las compras no se concilian.
type ComprasUseCase struct {
	repo repository.CompraRepository
	cfg  config.QueryConfig
}

// NewComprasUseCase construye el caso de uso.
func NewComprasUseCase(repo repository.CompraRepository, cfg config.QueryConfig) *ComprasUseCase {
	return &ComprasUseCase{repo: repo, cfg: cfg}
}

// List devuelve una página de compras dentro del alcance del llamador.
func (uc *ComprasUseCase) List(ctx context.Context, scope domain.AccessScope, in dto.ListComprasRequest) (*dto.ListComprasResponse, error) {
	pag, err := paginaCompras(in.Page, in.PageSize, uc.cfg)
	if err != nil {
		return nil, err
	}
	efectivo := scope.Narrow(rucsPedidos(in.RUC, in.RUCs))
	if efectivo.IsEmpty() {
		return &dto.ListComprasResponse{
			Items:      []dto.CompraResponse{},
			Paginacion: dto.NewPaginacion(pag.Numero, pag.Tamano, 0),
		}, nil
	}
	desde, err := parseFecha(in.FechaDesde)
	if err != nil {
		return nil, err
	}
	hasta, err := parseFecha(in.FechaHasta)
	if err != nil {
		return nil, err
	}
	filtro := repository.CompraFilter{
		RUCs:       efectivo.RUCs(),
		Periodo:    in.Periodo,
		FechaDesde: desde,
		FechaHasta: hasta,
	}
	filas, total, err := uc.repo.ListCompras(ctx, filtro, pag)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CompraResponse, 0, len(filas))
	for i := range filas {
		items = append(items, dto.CompraFromEntity(&filas[i]))
	}
	return &dto.ListComprasResponse{
		Items:      items,
		Paginacion: dto.NewPaginacion(pag.Numero, pag.Tamano, total),
	}, nil
}

func paginaCompras(page, pageSize int, cfg config.QueryConfig) (repository.Pagina, error) {
	if page < 0 || pageSize < 0 {
		return repository.Pagina{}, domain.ErrInvalidInput
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = cfg.DefaultPageSize
	}
	if pageSize > cfg.MaxPageSize {
		return repository.Pagina{}, domain.ErrInvalidInput
	}
	return repository.Pagina{Numero: page, Tamano: pageSize}, nil
}
