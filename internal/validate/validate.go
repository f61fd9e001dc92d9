package validate

import (
	"regexp"
	"strconv"
	"strings"

	"bargalileo/internal/domain"
)

var (
	reUsername = regexp.MustCompile(`^[A-Za-z0-9._-]{1,30}$`)
	reNombre   = regexp.MustCompile(`^[\pL\pN ._'-]{1,100}$`)
)

// Estado validates a mesa estado against the fixed set.
func Estado(s string) (string, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case domain.EstadoDisponible, domain.EstadoOcupada, domain.EstadoReservada, domain.EstadoFueraDeServicio:
		return s, true
	}
	return "", false
}

// ClampCantidad clamps a quantity to [1, max]. Clamping (not rejecting) is
// the intended stepper behavior; max <= 0 means no upper bound beyond the
// hard cap of 99 the original stepper used.
func ClampCantidad(n, max int) int {
	if n < 1 {
		n = 1
	}
	if n > 99 {
		n = 99
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// UserAction validates the body.action of the pedido-usuarios endpoint.
func UserAction(s string) (string, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	return s, s == "add" || s == "remove"
}

// Username validates a directory search/lookup term.
func Username(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reUsername.MatchString(s)
}

// Nombre validates a displayable mesa/producto name.
func Nombre(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reNombre.MatchString(s)
}

// ID parses a positive integer path id.
func ID(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil && n > 0
}
