package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrUserNotFound        = errors.New("usuario no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrInvalidEstado       = errors.New("estado de gestión inválido")
	ErrInvalidMotivo       = errors.New("motivo de pérdida inválido")
	ErrSnapshotUnavailable = errors.New("vista materializada no disponible")
)
