package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/pkg/jwt"
)

// Locals keys con la identidad y el alcance del llamador.
const (
	LocalEmail  = "usuario_email"
	LocalNombre = "usuario_nombre"
	LocalRol    = "usuario_rol"
	LocalScope  = "alcance"
)

// ScopeResolver resuelve el alcance de RUCs de un llamador autenticado.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, email, rol string) (domain.AccessScope, error)
}

// AuthMiddleware valida el Bearer Token, resuelve el alcance del llamador y
// deja identidad + alcance en c.Locals.
func AuthMiddleware(jwtSecret string, resolver ScopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, errResp := bearerToken(c)
		if errResp != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(*errResp)
		}
		return autenticar(c, jwtSecret, resolver, token)
	}
}

// OptionalAuthMiddleware como AuthMiddleware, pero sin token el llamador queda
// como anónimo con alcance sin restricción (lectura pública). Un token
// presente pero inválido sigue siendo 401.
func OptionalAuthMiddleware(jwtSecret string, resolver ScopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			c.Locals(LocalScope, domain.Unrestricted())
			return c.Next()
		}
		token, errResp := bearerToken(c)
		if errResp != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(*errResp)
		}
		return autenticar(c, jwtSecret, resolver, token)
	}
}

// RequireAdmin corta con 403 si el llamador no tiene rol admin. Debe ir
// después de AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetRol(c) != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "requiere rol admin"})
		}
		return c.Next()
	}
}

func autenticar(c *fiber.Ctx, jwtSecret string, resolver ScopeResolver, token string) error {
	email, nombre, rol, err := jwt.Parse(jwtSecret, token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
	}
	scope, err := resolver.ResolveScope(c.Context(), email, rol)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "no se pudo resolver el alcance"})
	}
	c.Locals(LocalEmail, email)
	c.Locals(LocalNombre, nombre)
	c.Locals(LocalRol, rol)
	c.Locals(LocalScope, scope)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, *dto.ErrorResponse) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"}
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", &dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"}
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"}
	}
	return token, nil
}

// GetScope devuelve el alcance del contexto (después del middleware de auth).
// Sin middleware previo devuelve un alcance restringido a nada.
func GetScope(c *fiber.Ctx) domain.AccessScope {
	v := c.Locals(LocalScope)
	if v == nil {
		return domain.RestrictedTo(nil)
	}
	s, ok := v.(domain.AccessScope)
	if !ok {
		return domain.RestrictedTo(nil)
	}
	return s
}

// GetEmail devuelve el email del contexto (vacío si es anónimo).
func GetEmail(c *fiber.Ctx) string {
	v := c.Locals(LocalEmail)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetNombre devuelve el nombre del contexto.
func GetNombre(c *fiber.Ctx) string {
	v := c.Locals(LocalNombre)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetRol devuelve el rol del contexto.
func GetRol(c *fiber.Ctx) string {
	v := c.Locals(LocalRol)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
