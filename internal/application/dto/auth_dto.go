package dto

import "time"

// LoginRequest body de POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UsuarioResponse usuario en respuestas (nunca incluye el hash).
type UsuarioResponse struct {
	Email         string    `json:"email"`
	Nombre        string    `json:"nombre"`
	Rol           string    `json:"rol"`
	UltimoIngreso time.Time `json:"ultimo_ingreso"`
}

// LoginResponse token JWT más el usuario autenticado.
type LoginResponse struct {
	Token   string          `json:"token"`
	Usuario UsuarioResponse `json:"usuario"`
}

// MeResponse identidad y alcance del llamador actual. RUCsAutorizados es nil
// cuando el acceso es sin restricción.
type MeResponse struct {
	Email           string   `json:"email"`
	Nombre          string   `json:"nombre"`
	Rol             string   `json:"rol"`
	SinRestriccion  bool     `json:"sin_restriccion"`
	RUCsAutorizados []string `json:"rucs_autorizados,omitempty"`
}

// EnroladoResponse empresa enrolada en respuestas.
type EnroladoResponse struct {
	ID          int64   `json:"id"`
	RUC         string  `json:"ruc"`
	RazonSocial *string `json:"razon_social,omitempty"`
	Email       *string `json:"email,omitempty"`
	Estado      string  `json:"estado"`
}
