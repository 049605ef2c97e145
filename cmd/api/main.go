package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/operaciones-peru/crm-sunat/internal/application/auth"
	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
	infrapdf "github.com/operaciones-peru/crm-sunat/internal/infrastructure/pdf"
	"github.com/operaciones-peru/crm-sunat/internal/infrastructure/postgres"
	httpRouter "github.com/operaciones-peru/crm-sunat/internal/interfaces/http"
	"github.com/operaciones-peru/crm-sunat/pkg/config"
	"github.com/operaciones-peru/crm-sunat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("esquema base")
	}

	ventaRepo := postgres.NewVentaRepository(pool)
	snapshotRepo := postgres.NewSnapshotRepository(pool)
	compraRepo := postgres.NewCompraRepository(pool)
	enroladoRepo := postgres.NewEnroladoRepository(pool)
	usuarioRepo := postgres.NewUsuarioRepository(pool)

	authUC := auth.NewAuthUseCase(usuarioRepo, enroladoRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	reporteGen := infrapdf.NewReporteVentasPDF()
	ventasUC := usecase.NewVentasUseCase(ventaRepo, snapshotRepo, reporteGen, cfg.Query, log)
	metricasUC := usecase.NewMetricasUseCase(ventaRepo, snapshotRepo, compraRepo, enroladoRepo, log)
	comprasUC := usecase.NewComprasUseCase(compraRepo, cfg.Query)
	enroladosUC := usecase.NewEnroladosUseCase(enroladoRepo)
	snapshotUC := usecase.NewSnapshotUseCase(snapshotRepo, log)

	if cfg.Snapshot.RebuildOnStart {
		log.Info().Msg("reconstruyendo snapshot al arrancar")
		if err := snapshotUC.Rebuild(ctx); err != nil {
			log.Error().Err(err).Msg("rebuild del snapshot")
		}
	}

	// Scheduler de refresco: mantiene la vista al día sin bloquear lectores.
	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.Snapshot.RefreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Snapshot.RefreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-schedCtx.Done():
					return
				case <-ticker.C:
					if _, err := snapshotUC.Refresh(schedCtx); err != nil {
						log.Error().Err(err).Msg("refresh programado del snapshot")
					}
				}
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "CRM SUNAT API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		VentasUC:    ventasUC,
		MetricasUC:  metricasUC,
		ComprasUC:   comprasUC,
		EnroladosUC: enroladosUC,
		SnapshotUC:  snapshotUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
		Pool:        pool,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
