package remote

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the gRPC service every resolver backend exposes. Messages
// are google.protobuf.Struct in both directions.
const ServiceName = "graphrt.remote.v1.Resolver"

// Method names.
const (
	MethodResolve      = "Resolve"
	MethodResolveBatch = "ResolveBatch"
	MethodCheck        = "Check"
)

// Request asks a backend for one field value or one node.
type Request struct {
	Coordinate string
	Arguments  map[string]any
	// Object and Query hold the required selections of the binding.
	Object map[string]any
	Query  map[string]any
	// ID is the internal ID of a node lookup.
	ID string
}

// CheckRequest asks a backend to decide access.
type CheckRequest struct {
	Coordinate string
	TypeName   string
	FieldName  string
	Arguments  map[string]any
	// Object is the checked object, or the parent of a checked field, when
	// it is a JSON object.
	Object map[string]any
	ID     string
}

// Decision is a backend's answer to a CheckRequest.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
	Skip  Decision = "skip"
)

// Error is a failure reported by a backend for one item.
type Error struct {
	Message    string
	Extensions map[string]any
}

func (e *Error) Error() string { return e.Message }

// Result is one item of a batch answer.
type Result struct {
	Value any
	Err   error
}

func encodeRequest(r *Request) (*structpb.Struct, error) {
	m := map[string]any{"coordinate": r.Coordinate}
	putMap(m, "arguments", r.Arguments)
	putMap(m, "object", r.Object)
	putMap(m, "query", r.Query)
	if r.ID != "" {
		m["id"] = r.ID
	}
	return newStruct(m)
}

func decodeRequest(s *structpb.Struct) *Request {
	m := s.AsMap()
	return &Request{
		Coordinate: stringOf(m["coordinate"]),
		Arguments:  mapOf(m["arguments"]),
		Object:     mapOf(m["object"]),
		Query:      mapOf(m["query"]),
		ID:         stringOf(m["id"]),
	}
}

func encodeBatch(coordinate string, reqs []*Request) (*structpb.Struct, error) {
	items := make([]any, len(reqs))
	for i, r := range reqs {
		s, err := encodeRequest(r)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = s.AsMap()
	}
	return newStruct(map[string]any{"coordinate": coordinate, "items": items})
}

func decodeBatch(s *structpb.Struct) (string, []*Request, error) {
	coordinate := s.GetFields()["coordinate"].GetStringValue()
	list := s.GetFields()["items"].GetListValue()
	reqs := make([]*Request, len(list.GetValues()))
	for i, v := range list.GetValues() {
		item := v.GetStructValue()
		if item == nil {
			return "", nil, fmt.Errorf("item %d is not an object", i)
		}
		reqs[i] = decodeRequest(item)
	}
	return coordinate, reqs, nil
}

func encodeResult(value any, err error) map[string]any {
	if err != nil {
		e := map[string]any{"message": err.Error()}
		if re, ok := err.(*Error); ok && len(re.Extensions) > 0 {
			e["extensions"] = re.Extensions
		}
		return map[string]any{"error": e}
	}
	return map[string]any{"value": value}
}

func decodeResult(m map[string]any) Result {
	if e, ok := m["error"].(map[string]any); ok {
		return Result{Err: &Error{Message: stringOf(e["message"]), Extensions: mapOf(e["extensions"])}}
	}
	return Result{Value: m["value"]}
}

func encodeCheck(r *CheckRequest) (*structpb.Struct, error) {
	m := map[string]any{"coordinate": r.Coordinate, "type": r.TypeName}
	if r.FieldName != "" {
		m["field"] = r.FieldName
	}
	putMap(m, "arguments", r.Arguments)
	putMap(m, "object", r.Object)
	if r.ID != "" {
		m["id"] = r.ID
	}
	return newStruct(m)
}

func decodeCheck(s *structpb.Struct) *CheckRequest {
	m := s.AsMap()
	return &CheckRequest{
		Coordinate: stringOf(m["coordinate"]),
		TypeName:   stringOf(m["type"]),
		FieldName:  stringOf(m["field"]),
		Arguments:  mapOf(m["arguments"]),
		Object:     mapOf(m["object"]),
		ID:         stringOf(m["id"]),
	}
}

func putMap(m map[string]any, key string, v map[string]any) {
	if len(v) > 0 {
		m[key] = v
	}
}

// newStruct converts m, normalizing values structpb does not accept (typed
// slices, structs, named string types) through their JSON form.
func newStruct(m map[string]any) (*structpb.Struct, error) {
	if s, err := structpb.NewStruct(m); err == nil {
		return s, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var normalized map[string]any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return structpb.NewStruct(normalized)
}

func mapOf(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}
