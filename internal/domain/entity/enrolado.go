package entity

// Enrolado empresa enrolada en el sistema: el RUC cuyos registros SUNAT se
// ingestan, con el email del usuario asignado a su gestión (opcional).
// Las credenciales SOL/API viven en el pipeline de ingesta, no aquí.
type Enrolado struct {
	ID          int64
	RUC         string
	RazonSocial *string
	Email       *string // usuario asignado; NULL = sin asignar
	Estado      string  // "pendiente" | "completo"
}
