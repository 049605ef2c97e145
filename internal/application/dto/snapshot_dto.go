package dto

import "time"

// RefreshResponse resultado de una corrida de refresco del snapshot.
type RefreshResponse struct {
	RunID    string    `json:"run_id"`
	Inicio   time.Time `json:"inicio"`
	Fin      time.Time `json:"fin"`
	Filas    int64     `json:"filas"`
	Duracion string    `json:"duracion"`
}
