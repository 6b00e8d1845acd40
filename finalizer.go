package auth

import "net/http"

// ErrorBody is the JSON body written for a rejected request
type ErrorBody struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	ErrorType ErrorKind      `json:"errorType"`
	Details   map[string]any `json:"details,omitempty"`
}

// Decision is what the transport must do with an outcome: attach Principal
// and continue, or reply with Status and Body.
type Decision struct {
	Principal *Principal
	Status    int
	Body      *ErrorBody
}

// Continue reports whether the request proceeds to the next handler
func (d Decision) Continue() bool {
	return d.Principal != nil
}

// Finalize maps an AuthOutcome to a Decision. It performs no I/O.
func Finalize(outcome AuthOutcome) Decision {
	if outcome.Authenticated() {
		return Decision{Principal: outcome.Principal, Status: http.StatusOK}
	}

	authErr := outcome.Err
	if authErr == nil {
		authErr = newAuthError(KindSystemError, "Error desconocido en el proceso de autenticación", nil)
	}

	return Decision{
		Status: authErr.Kind.Status(),
		Body: &ErrorBody{
			Success:   false,
			Message:   authErr.Message,
			ErrorType: authErr.Kind,
			Details:   authErr.Details,
		},
	}
}
