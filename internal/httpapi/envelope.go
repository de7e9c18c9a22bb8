// Package httpapi is the HTTP/JSON surface from spec.md §6: gorilla/mux
// routing, a middleware chain grounded on
// sawpanic-cryptorun/internal/interfaces/http/server.go, bearer-token
// auth, and the strict error envelope from spec.md §7.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/kisuya/reasoncard/internal/apperr"
)

// errorEnvelope is the wire shape of spec.md §7's error response.
type errorEnvelope struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id"`
	Retryable bool                   `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError normalizes any error into spec.md §7's envelope, mapping
// apperr.Code onto an HTTP status. Unrecognized errors become a 500
// unknown_error so internal details never leak to the client.
func writeError(w http.ResponseWriter, requestID string, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.New(apperr.CodeUnknown, "internal error")
	}
	status := statusFor(ae.Code)
	writeJSON(w, status, errorEnvelope{
		Code:      string(ae.Code),
		Message:   ae.Message,
		Details:   ae.Details,
		RequestID: requestID,
		Retryable: ae.Retryable,
	})
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidInput:
		return http.StatusBadRequest
	case apperr.CodeInvalidCredentials, apperr.CodeInvalidToken:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound, apperr.CodeRevisionHistoryNone:
		return http.StatusNotFound
	case apperr.CodeConflict, apperr.CodeEmailAlreadyExists, apperr.CodeDuplicateReport:
		return http.StatusConflict
	case apperr.CodeBriefLinkExpired:
		return http.StatusGone
	case apperr.CodeCompareUpstreamTO:
		return http.StatusGatewayTimeout
	case apperr.CodeBackpressure, apperr.CodeUpstreamUnavailable, apperr.CodeTemporarilyUnavail:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.InvalidInput("malformed request body: " + err.Error())
	}
	return nil
}
