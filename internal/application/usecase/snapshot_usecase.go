package usecase

import (
	"context"
	"errors"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
	"github.com/operaciones-peru/crm-sunat/pkg/logger"
)

// SnapshotUseCase administra la vista materializada ventas_backend.
type SnapshotUseCase struct {
	snapshot repository.VentaSnapshotRepository
	log      *logger.Logger
}

// NewSnapshotUseCase construye el caso de uso.
func NewSnapshotUseCase(snapshot repository.VentaSnapshotRepository, log *logger.Logger) *SnapshotUseCase {
	return &SnapshotUseCase{snapshot: snapshot, log: log}
}

// Refresh refresca la vista sin bloquear lectores y devuelve la corrida.
// Idempotente: refrescar una vista al día no cambia resultados. Si la vista
// todavía no existe la reconstruye primero, así el refresh también sirve de
// bootstrap.
func (uc *SnapshotUseCase) Refresh(ctx context.Context) (*dto.RefreshResponse, error) {
	run, err := uc.snapshot.Refresh(ctx)
	if errors.Is(err, domain.ErrSnapshotUnavailable) {
		uc.log.Warn().Msg("snapshot inexistente, reconstruyendo antes de refrescar")
		if err := uc.Rebuild(ctx); err != nil {
			return nil, err
		}
		run, err = uc.snapshot.Refresh(ctx)
	}
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("run_id", run.ID).
		Int64("filas", run.Filas).
		Dur("duracion", run.Fin.Sub(run.Inicio)).
		Msg("snapshot refrescado")
	return &dto.RefreshResponse{
		RunID:    run.ID,
		Inicio:   run.Inicio,
		Fin:      run.Fin,
		Filas:    run.Filas,
		Duracion: run.Fin.Sub(run.Inicio).String(),
	}, nil
}

// Rebuild recrea la vista desde cero. Los lectores ven la vista anterior o la
// nueva completa, nunca un estado parcial.
func (uc *SnapshotUseCase) Rebuild(ctx context.Context) error {
	if err := uc.snapshot.Rebuild(ctx); err != nil {
		return err
	}
	uc.log.Info().Msg("snapshot reconstruido")
	return nil
}
