package server

import (
	"encoding/json"
	"net/http"

	"github.com/hanpama/graphrt/internal/language"
)

type location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type requestError struct {
	Message    string         `json:"message"`
	Locations  []location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// errorResponse answers a request rejected before execution. It carries no
// data entry.
type errorResponse struct {
	Errors []requestError `json:"errors"`
}

func rejection(message string) errorResponse {
	return errorResponse{Errors: []requestError{{Message: message}}}
}

func requestErrors(errs ...*language.Error) errorResponse {
	out := errorResponse{Errors: make([]requestError, len(errs))}
	for i, err := range errs {
		re := requestError{Message: err.Message}
		for _, loc := range err.Locations {
			re.Locations = append(re.Locations, location{Line: loc.Line, Column: loc.Column})
		}
		if len(err.Extensions) > 0 {
			re.Extensions = err.Extensions
		}
		out.Errors[i] = re
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
