package domain

// AccessScope alcance de acceso de un llamador ya autenticado: o bien ve todos
// los RUCs (admin / acceso público) o bien un conjunto finito de RUCs
// autorizados. Variante cerrada en lugar de una lista anulable: "lista vacía"
// significa explícitamente "autorizado a nada", nunca "sin restricción".
type AccessScope struct {
	unrestricted bool
	rucs         map[string]struct{}
}

// Unrestricted alcance sin restricción (ve todos los RUCs).
func Unrestricted() AccessScope {
	return AccessScope{unrestricted: true}
}

// RestrictedTo alcance limitado al conjunto de RUCs dado (puede ser vacío).
func RestrictedTo(rucs []string) AccessScope {
	set := make(map[string]struct{}, len(rucs))
	for _, r := range rucs {
		if r != "" {
			set[r] = struct{}{}
		}
	}
	return AccessScope{rucs: set}
}

// IsUnrestricted indica si el alcance no impone filtro de RUC.
func (s AccessScope) IsUnrestricted() bool {
	return s.unrestricted
}

// IsEmpty indica si el llamador no está autorizado a ningún RUC.
// Un alcance sin restricción nunca está vacío.
func (s AccessScope) IsEmpty() bool {
	return !s.unrestricted && len(s.rucs) == 0
}

// Allows indica si el alcance autoriza el RUC dado.
func (s AccessScope) Allows(ruc string) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.rucs[ruc]
	return ok
}

// RUCs devuelve los RUCs autorizados (nil si no hay restricción).
func (s AccessScope) RUCs() []string {
	if s.unrestricted {
		return nil
	}
	out := make([]string, 0, len(s.rucs))
	for r := range s.rucs {
		out = append(out, r)
	}
	return out
}

// Narrow intersecta el alcance con un filtro de RUCs pedido por el llamador.
// Con alcance sin restricción el filtro manda; con alcance restringido solo
// sobreviven los RUCs presentes en ambos lados. El resultado puede quedar
// vacío (consulta sin filas, no un error).
func (s AccessScope) Narrow(rucs []string) AccessScope {
	if len(rucs) == 0 {
		return s
	}
	if s.unrestricted {
		return RestrictedTo(rucs)
	}
	var keep []string
	for _, r := range rucs {
		if _, ok := s.rucs[r]; ok {
			keep = append(keep, r)
		}
	}
	return RestrictedTo(keep)
}
