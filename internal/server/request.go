package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
)

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

var (
	errMissingQuery = errors.New("missing 'query'")
	errEmptyBatch   = errors.New("empty batch")
	errInvalidJSON  = errors.New("invalid JSON")
)

// decodeRequest reads the operations of r. POST bodies may hold a JSON array
// of requests, reported with batch set. An oversized body yields an
// *http.MaxBytesError.
func decodeRequest(w http.ResponseWriter, r *http.Request, maxBody int64) (reqs []GraphQLRequest, batch bool, err error) {
	if r.Method == http.MethodGet {
		req, err := queryRequest(r.URL.Query())
		if err != nil {
			return nil, false, err
		}
		return []GraphQLRequest{req}, false, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return nil, false, errors.New("unsupported Content-Type")
		}
	}
	body := r.Body
	if maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, false, err
		}
		return nil, false, errors.New("failed to read body")
	}

	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &reqs); err != nil {
			return nil, false, errInvalidJSON
		}
		if len(reqs) == 0 {
			return nil, false, errEmptyBatch
		}
		return reqs, true, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, false, errInvalidJSON
	}
	if req.Query == "" {
		return nil, false, errMissingQuery
	}
	return []GraphQLRequest{req}, false, nil
}

// queryRequest decodes the parameters of a GET request. variables and
// extensions are JSON encoded.
func queryRequest(q url.Values) (GraphQLRequest, error) {
	req := GraphQLRequest{Query: q.Get("query"), OperationName: q.Get("operationName")}
	if req.Query == "" {
		return req, errMissingQuery
	}
	for param, dst := range map[string]*map[string]any{"variables": &req.Variables, "extensions": &req.Extensions} {
		if v := q.Get(param); v != "" {
			if err := json.Unmarshal([]byte(v), dst); err != nil {
				return req, errors.New("invalid '" + param + "' JSON")
			}
		}
	}
	return req, nil
}
