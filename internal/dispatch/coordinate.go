package dispatch

import (
	"fmt"
	"strings"
)

// Coordinate names a field ("User.fullName") or, with an empty FieldName, a
// type ("User"). It is comparable and used as a map key.
type Coordinate struct {
	TypeName  string
	FieldName string
}

// FieldCoordinate returns the coordinate of typeName.fieldName.
func FieldCoordinate(typeName, fieldName string) Coordinate {
	return Coordinate{TypeName: typeName, FieldName: fieldName}
}

// TypeCoordinate returns the type-level coordinate of typeName.
func TypeCoordinate(typeName string) Coordinate {
	return Coordinate{TypeName: typeName}
}

// IsType reports whether c names a type rather than a field.
func (c Coordinate) IsType() bool { return c.FieldName == "" }

func (c Coordinate) String() string {
	if c.FieldName == "" {
		return c.TypeName
	}
	return c.TypeName + "." + c.FieldName
}

// ParseCoordinate parses "Type" or "Type.field".
func ParseCoordinate(s string) (Coordinate, error) {
	typeName, fieldName, found := strings.Cut(s, ".")
	if typeName == "" || (found && fieldName == "") || strings.Contains(fieldName, ".") {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q", s)
	}
	return Coordinate{TypeName: typeName, FieldName: fieldName}, nil
}
