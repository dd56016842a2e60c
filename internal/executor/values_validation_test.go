package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
)

const valuesSDL = `
input FilterInput {
  required: String!
  optional: Int
}

enum Color { RED GREEN }

type Query { a: Int }
`

func valuesSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(valuesSDL)
	require.NoError(t, err)
	return sch
}

func operationWith(name string, typ *ast.Type) *language.OperationDefinition {
	return &language.OperationDefinition{
		Operation: language.Query,
		VariableDefinitions: ast.VariableDefinitionList{
			&ast.VariableDefinition{Variable: name, Type: typ},
		},
	}
}

func TestCoerceVariableValues_InputObjectValidation(t *testing.T) {
	sch := valuesSchema(t)
	op := operationWith("input", &ast.Type{NamedType: "FilterInput", NonNull: true})

	_, err := coerceVariableValues(sch, op, map[string]any{
		"input": map[string]any{
			"optional": 10,
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "required field 'required'")

	_, err = coerceVariableValues(sch, op, map[string]any{
		"input": map[string]any{"required": "x", "extra": 1},
	})
	require.Error(t, err)

	got, err := coerceVariableValues(sch, op, map[string]any{
		"input": map[string]any{"required": "x", "optional": 3.0},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"input": map[string]any{"required": "x", "optional": 3}}, got)
}

func TestCoerceVariableValues_ScalarTypeMismatch(t *testing.T) {
	sch := valuesSchema(t)
	op := operationWith("count", &ast.Type{NamedType: "Int", NonNull: true})

	_, err := coerceVariableValues(sch, op, map[string]any{
		"count": "42",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot coerce")

	_, err = coerceVariableValues(sch, op, map[string]any{"count": 1.5})
	require.Error(t, err)

	_, err = coerceVariableValues(sch, op, map[string]any{"count": int64(1) << 40})
	require.Error(t, err)
}

func TestCoerceVariableValues_MissingAndNull(t *testing.T) {
	sch := valuesSchema(t)
	op := operationWith("count", &ast.Type{NamedType: "Int", NonNull: true})

	_, err := coerceVariableValues(sch, op, nil)
	require.EqualError(t, err, "variable $count of required type Int! was not provided")

	_, err = coerceVariableValues(sch, op, map[string]any{"count": nil})
	require.EqualError(t, err, "variable $count of type Int! cannot be null")

	optional := operationWith("count", &ast.Type{NamedType: "Int"})
	got, err := coerceVariableValues(sch, optional, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestCoerceVariableValues_Enum(t *testing.T) {
	sch := valuesSchema(t)

	color := operationWith("c", &ast.Type{NamedType: "Color"})
	got, err := coerceVariableValues(sch, color, map[string]any{"c": "RED"})
	require.NoError(t, err)
	require.Equal(t, "RED", got["c"])
	_, err = coerceVariableValues(sch, color, map[string]any{"c": "BLUE"})
	require.Error(t, err)
}

func TestCoerceArgumentValues_Defaults(t *testing.T) {
	sch, err := schema.BuildFromSDL(`type Query { list(first: Int = 10, after: String, tags: [String!]): [Int] }`)
	require.NoError(t, err)
	def := sch.QueryRoot().Field("list")

	doc, err := language.ParseQuery(`query($after: String) { list(after: $after, tags: "solo") }`)
	require.NoError(t, err)
	field := doc.Operations[0].SelectionSet[0].(*language.Field)

	got, err := coerceArgumentValues(sch, def, field.Arguments, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"first": 10, "tags": []any{"solo"}}, got)
}
