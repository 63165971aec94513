package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/MrEthical07/gatekeeper"
)

// ErrorBody is the error member of every failed response.
type ErrorBody struct {
	Kind              gatekeeper.ErrorKind `json:"kind"`
	Code              string               `json:"code"`
	Message           string               `json:"message"`
	Fields            map[string]string    `json:"fields,omitempty"`
	RetryAfterSeconds int                  `json:"retryAfterSeconds,omitempty"`
}

// Envelope is the response shape shared by every JSON endpoint.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// WriteJSON writes data inside a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Envelope{Success: true, Data: data})
}

// WriteError classifies err and writes the matching status and error envelope.
// Rate-limit errors also set Retry-After.
func WriteError(w http.ResponseWriter, err error) {
	kind := gatekeeper.KindOf(err)
	body := &ErrorBody{
		Kind:    kind,
		Code:    gatekeeper.CodeOf(err),
		Message: gatekeeper.MessageOf(err),
	}

	var verr *gatekeeper.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}

	var rlErr *gatekeeper.RateLimitError
	if errors.As(err, &rlErr) {
		secs := retrySeconds(rlErr.Decision)
		body.RetryAfterSeconds = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	writeEnvelope(w, kind.Status(), Envelope{Success: false, Error: body})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("middleware: encode response failed", "error", err)
	}
}

func retrySeconds(d gatekeeper.RateDecision) int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
