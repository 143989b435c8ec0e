package client

import (
	"errors"
	"fmt"
)

// StatusError is the structured transport failure: it carries the HTTP
// status and the remote error code instead of encoding them in text.
type StatusError struct {
	Code       int
	RemoteCode string
}

func (e *StatusError) Error() string {
	if e.RemoteCode != "" {
		return fmt.Sprintf("ksef returned status %d (%s)", e.Code, e.RemoteCode)
	}
	return fmt.Sprintf("ksef returned status %d", e.Code)
}

// Message maps the failure to the operator-facing Polish message recorded
// on the rejected submission.
func (e *StatusError) Message() string {
	switch {
	case e.Code == 401:
		return "Nieautoryzowany dostęp do KSeF"
	case e.Code == 403:
		return "Brak uprawnień do wysyłki e-Faktury"
	case e.Code == 404:
		return "Endpoint KSeF nie został znaleziony"
	case e.Code == 429:
		return "Zbyt wiele żądań do KSeF"
	case e.Code >= 500:
		return "Błąd serwera KSeF"
	}
	switch e.RemoteCode {
	case "SCHEMA_INVALID":
		return "Nieprawidłowa struktura FA"
	case "SIGNATURE_INVALID":
		return "Nieprawidłowy podpis"
	}
	return "Błąd wysyłki do KSeF"
}

// FailureMessage resolves the recorded message for any submission error.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message()
	}
	return "Błąd wysyłki do KSeF"
}
