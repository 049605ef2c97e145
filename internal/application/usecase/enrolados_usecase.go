package usecase

import (
	"context"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
)

// EnroladosUseCase consulta de empresas enroladas, acotada al alcance.
type EnroladosUseCase struct {
	repo repository.EnroladoRepository
}

// NewEnroladosUseCase construye el caso de uso.
func NewEnroladosUseCase(repo repository.EnroladoRepository) *EnroladosUseCase {
	return &EnroladosUseCase{repo: repo}
}

// List devuelve los enrolados visibles para el llamador.
func (uc *EnroladosUseCase) List(ctx context.Context, scope domain.AccessScope) ([]dto.EnroladoResponse, error) {
	if scope.IsEmpty() {
		return []dto.EnroladoResponse{}, nil
	}
	filas, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EnroladoResponse, 0, len(filas))
	for i := range filas {
		if !scope.Allows(filas[i].RUC) {
			continue
		}
		out = append(out, enroladoResponse(&filas[i]))
	}
	return out, nil
}

// GetByRUC devuelve un enrolado. ErrForbidden si el RUC queda fuera del alcance.
func (uc *EnroladosUseCase) GetByRUC(ctx context.Context, scope domain.AccessScope, ruc string) (*dto.EnroladoResponse, error) {
	if !scope.Allows(ruc) {
		return nil, domain.ErrForbidden
	}
	e, err := uc.repo.GetByRUC(ctx, ruc)
	if err != nil {
		return nil, err
	}
	out := enroladoResponse(e)
	return &out, nil
}

func enroladoResponse(e *entity.Enrolado) dto.EnroladoResponse {
	return dto.EnroladoResponse{
		ID:          e.ID,
		RUC:         e.RUC,
		RazonSocial: e.RazonSocial,
		Email:       e.Email,
		Estado:      e.Estado,
	}
}
