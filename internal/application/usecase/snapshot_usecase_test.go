package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
	"github.com/operaciones-peru/crm-sunat/pkg/logger"
)

// fakeSnapshotVacio simula una base sin la vista materializada: Refresh falla
// hasta que alguien la reconstruye.
type fakeSnapshotVacio struct {
	fakeSnapshot
	rebuilds   int
	rebuildErr error
}

func (f *fakeSnapshotVacio) Rebuild(_ context.Context) error {
	f.rebuilds++
	if f.rebuildErr != nil {
		return f.rebuildErr
	}
	f.err = nil
	return nil
}

func nuevoSnapshotUC(snapshot repository.VentaSnapshotRepository) *usecase.SnapshotUseCase {
	return usecase.NewSnapshotUseCase(snapshot, logger.New(logger.Config{Env: "development", Level: "error"}))
}

// Con la vista presente el refresh responde la corrida sin reconstruir nada.
func TestRefresh_ConVistaExistente(t *testing.T) {
	fin := time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC)
	snapshot := &fakeSnapshotVacio{fakeSnapshot: fakeSnapshot{
		lastRun: &repository.RefreshRun{ID: "r1", Inicio: fin.Add(-time.Minute), Fin: fin, Filas: 42},
	}}
	uc := nuevoSnapshotUC(snapshot)

	out, err := uc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", out.RunID)
	assert.EqualValues(t, 42, out.Filas)
	assert.Zero(t, snapshot.rebuilds)
}

// Si la vista no existe, el refresh la reconstruye primero y luego refresca:
// el endpoint sirve también para el bootstrap inicial.
func TestRefresh_ReconstruyeSiLaVistaNoExiste(t *testing.T) {
	snapshot := &fakeSnapshotVacio{fakeSnapshot: fakeSnapshot{
		err:     domain.ErrSnapshotUnavailable,
		lastRun: &repository.RefreshRun{ID: "r2", Filas: 7},
	}}
	uc := nuevoSnapshotUC(snapshot)

	out, err := uc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.rebuilds)
	assert.Equal(t, "r2", out.RunID)
	assert.EqualValues(t, 7, out.Filas)
}

// Un error de reconstrucción corta el refresh y se propaga.
func TestRefresh_PropagaErrorDeReconstruccion(t *testing.T) {
	falla := errors.New("permiso denegado")
	snapshot := &fakeSnapshotVacio{
		fakeSnapshot: fakeSnapshot{err: domain.ErrSnapshotUnavailable},
		rebuildErr:   falla,
	}
	uc := nuevoSnapshotUC(snapshot)

	_, err := uc.Refresh(context.Background())
	assert.ErrorIs(t, err, falla)
	assert.Equal(t, 1, snapshot.rebuilds)
}

// Otros errores del refresh no disparan la reconstrucción.
func TestRefresh_NoReconstruyePorOtrosErrores(t *testing.T) {
	falla := errors.New("conexión caída")
	snapshot := &fakeSnapshotVacio{fakeSnapshot: fakeSnapshot{err: falla}}
	uc := nuevoSnapshotUC(snapshot)

	_, err := uc.Refresh(context.Background())
	assert.ErrorIs(t, err, falla)
	assert.Zero(t, snapshot.rebuilds)
}
