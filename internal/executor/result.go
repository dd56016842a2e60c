package executor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Path locates a value in the response: field names and list indices.
type Path []PathElement

type PathElement = any

func (p Path) String() string {
	var sb strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case int:
			fmt.Fprintf(&sb, "[%d]", v)
		default:
			if i > 0 {
				sb.WriteByte('.')
			}
			fmt.Fprint(&sb, v)
		}
	}
	return sb.String()
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
	// Aborted is set when there is no data tree: the request failed before
	// execution started or a fatal error discarded the tree. The JSON form
	// then has no data member.
	Aborted bool `json:"-"`
}

func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	if r.Aborted {
		return json.Marshal(struct {
			Errors []GraphQLError `json:"errors"`
		}{r.Errors})
	}
	return json.Marshal(struct {
		Data   any            `json:"data"`
		Errors []GraphQLError `json:"errors,omitempty"`
	}{r.Data, r.Errors})
}
