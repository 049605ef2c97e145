package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operaciones-peru/crm-sunat/internal/application/auth"
	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	VentasUC    *usecase.VentasUseCase
	MetricasUC  *usecase.MetricasUseCase
	ComprasUC   *usecase.ComprasUseCase
	EnroladosUC *usecase.EnroladosUseCase
	SnapshotUC  *usecase.SnapshotUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
	Pool        *pgxpool.Pool
}

// Router registra las rutas de la API. Las lecturas aceptan llamadas sin token
// (alcance sin restricción); las mutaciones exigen token; la administración
// exige rol admin.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := deps.Pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "db": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	lectura := OptionalAuthMiddleware(deps.JWTSecret, deps.AuthUC)
	escritura := AuthMiddleware(deps.JWTSecret, deps.AuthUC)

	// Ventas: las rutas fijas van antes que /:id
	ventasHandler := NewVentasHandler(deps.VentasUC)
	ventas := api.Group("/ventas")
	ventas.Get("/empresas", lectura, ventasHandler.Empresas)
	ventas.Get("/reporte.pdf", lectura, ventasHandler.ReportePDF)
	ventas.Get("/", lectura, ventasHandler.List)
	ventas.Get("/:id", lectura, ventasHandler.GetByID)
	ventas.Put("/:id/estado", escritura, ventasHandler.UpdateEstado)
	ventas.Put("/:id/estado/perdida", escritura, ventasHandler.MarcarPerdida)

	// Métricas
	metricasHandler := NewMetricasHandler(deps.MetricasUC)
	api.Get("/metricas/resumen", lectura, metricasHandler.Resumen)
	api.Get("/estadisticas/resumen", escritura, RequireAdmin(), metricasHandler.Estadisticas)

	// Compras
	comprasHandler := NewComprasHandler(deps.ComprasUC)
	api.Get("/compras", lectura, comprasHandler.List)

	// Enrolados
	enroladosHandler := NewEnroladosHandler(deps.EnroladosUC)
	api.Get("/enrolados", lectura, enroladosHandler.List)
	api.Get("/enrolados/:ruc", lectura, enroladosHandler.GetByRUC)

	// Identidad
	api.Get("/users/me", escritura, authHandler.Me)

	// Snapshot (admin)
	snapshotHandler := NewSnapshotHandler(deps.SnapshotUC)
	api.Post("/snapshot/refresh", escritura, RequireAdmin(), snapshotHandler.Refresh)
}
