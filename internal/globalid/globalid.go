// Package globalid encodes node identities as opaque strings.
//
// A serialized ID is the standard base64 encoding of "Type:InternalID" where
// both parts are query-escaped, so the internal identifier may contain the
// delimiter or any UTF-8 text.
package globalid

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/hanpama/graphrt/internal/schema"
)

const delimiter = ":"

// ID identifies one node instance. Values are comparable and should be
// created with Codec.New or Codec.Deserialize.
type ID struct {
	Type       string
	InternalID string
}

func (id ID) String() string { return id.Type + delimiter + id.InternalID }

// MalformedError reports a serialized ID that could not be decoded.
type MalformedError struct {
	Input  string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed global id %q: %s", e.Input, e.Reason)
}

// NotNodeError reports an attempt to identify a type that is not node-capable.
type NotNodeError struct {
	Type string
}

func (e *NotNodeError) Error() string {
	return fmt.Sprintf("type %q does not implement %s", e.Type, schema.NodeInterface)
}

// Codec converts IDs to and from their serialized form for one schema.
type Codec struct {
	schema *schema.Schema
}

func NewCodec(sch *schema.Schema) *Codec {
	return &Codec{schema: sch}
}

// New returns the ID for a node-capable type.
func (c *Codec) New(typeName, internalID string) (ID, error) {
	if !c.schema.IsNodeType(typeName) {
		return ID{}, &NotNodeError{Type: typeName}
	}
	return ID{Type: typeName, InternalID: internalID}, nil
}

func (c *Codec) Serialize(id ID) string {
	raw := url.QueryEscape(id.Type) + delimiter + url.QueryEscape(id.InternalID)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func (c *Codec) Deserialize(s string) (ID, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ID{}, &MalformedError{Input: s, Reason: "invalid base64"}
	}
	parts := strings.Split(string(raw), delimiter)
	if len(parts) != 2 {
		return ID{}, &MalformedError{Input: s, Reason: fmt.Sprintf("expected 2 parts, got %d", len(parts))}
	}
	typeName, err := url.QueryUnescape(parts[0])
	if err != nil {
		return ID{}, &MalformedError{Input: s, Reason: "invalid type escape"}
	}
	internalID, err := url.QueryUnescape(parts[1])
	if err != nil {
		return ID{}, &MalformedError{Input: s, Reason: "invalid id escape"}
	}
	if !c.schema.IsNodeType(typeName) {
		return ID{}, &MalformedError{Input: s, Reason: fmt.Sprintf("type %q is not a node type", typeName)}
	}
	return ID{Type: typeName, InternalID: internalID}, nil
}
