package entity

import "time"

// Roles de usuario. Un admin ve todos los RUCs; un usuario solo los enrolados
// asociados a su email.
const (
	RolAdmin   = "admin"
	RolUsuario = "usuario"
)

// Usuario cuenta del CRM. El email es la clave primaria.
type Usuario struct {
	Email         string
	Nombre        string
	Rol           string
	PasswordHash  string
	UltimoIngreso time.Time
}
