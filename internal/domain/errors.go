package domain

// ErrGenerico is the user-facing fallback when a request fails without a
// server-supplied message (network down, malformed body, 5xx).
const ErrGenerico = "Ocurrió un error inesperado"

// APIError carries a server rejection. Message is the server's {error} field
// verbatim when present, ErrGenerico otherwise, so it can be shown to the
// user as-is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrGenerico
}

// UserMessage extracts a toast-ready message from any operation error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if ae, ok := err.(*APIError); ok {
		return ae.Error()
	}
	return ErrGenerico
}
