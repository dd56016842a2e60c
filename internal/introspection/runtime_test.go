package introspection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphrt/internal/executor"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
)

const testSDL = `
"""A person."""
type User {
  name: String
  nick: String @deprecated(reason: "use name")
  friends(first: Int = 10, order: Order = ASC): [User!]!
  score: Int @resolver
}

enum Order { ASC DESC }

type Query { me: User }
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	return sch
}

func run(t *testing.T, sch *schema.Schema, query string) *executor.ExecutionResult {
	t.Helper()
	w := Wrap(executor.NewDefaultRuntime(sch), sch)
	exec := executor.NewExecutor(w.Runtime, w.Schema)
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return exec.ExecuteRequest(context.Background(), doc, "", nil, map[string]any{})
}

func TestIntrospectionEnabled(t *testing.T) {
	res := run(t, buildSchema(t), "{__schema{queryType{name}}}")
	require.Empty(t, res.Errors)

	want := map[string]any{"__schema": map[string]any{"queryType": map[string]any{"name": "Query"}}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeFieldsAndWrappers(t *testing.T) {
	res := run(t, buildSchema(t), `{
		__type(name: "User") {
			kind
			description
			fields {
				name
				type { kind name ofType { kind ofType { kind name } } }
				args { name defaultValue }
			}
		}
	}`)
	require.Empty(t, res.Errors)

	user := res.Data.(map[string]any)["__type"].(map[string]any)
	require.Equal(t, "OBJECT", user["kind"])
	require.Equal(t, "A person.", user["description"])

	fields := user["fields"].([]any)
	names := make([]any, len(fields))
	for i, f := range fields {
		names[i] = f.(map[string]any)["name"]
	}
	require.Equal(t, []any{"name", "friends", "score"}, names, "declaration order without deprecated fields")

	friends := fields[1].(map[string]any)
	want := map[string]any{
		"kind": "NON_NULL",
		"name": nil,
		"ofType": map[string]any{
			"kind":   "LIST",
			"ofType": map[string]any{"kind": "NON_NULL", "name": nil},
		},
	}
	if diff := cmp.Diff(want, friends["type"]); diff != "" {
		t.Fatalf("type mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []any{
		map[string]any{"name": "first", "defaultValue": "10"},
		map[string]any{"name": "order", "defaultValue": "ASC"},
	}, friends["args"])
}

func TestDeprecatedAndDirectives(t *testing.T) {
	res := run(t, buildSchema(t), `{
		__type(name: "User") { fields(includeDeprecated: true) { name isDeprecated deprecationReason } }
		__schema { directives { name } }
		missing: __type(name: "Nope") { name }
	}`)
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)

	fields := data["__type"].(map[string]any)["fields"].([]any)
	require.Contains(t, fields, map[string]any{"name": "nick", "isDeprecated": true, "deprecationReason": "use name"})

	var directives []any
	for _, d := range data["__schema"].(map[string]any)["directives"].([]any) {
		directives = append(directives, d.(map[string]any)["name"])
	}
	require.NotContains(t, directives, schema.ResolverDirectiveName)
	require.Contains(t, directives, "include")
	require.Nil(t, data["missing"])
}

func TestTypenameField(t *testing.T) {
	sch := buildSchema(t)
	// __typename works without the introspection wrapper.
	exec := executor.NewExecutor(nil, sch)
	doc, err := language.ParseQuery("{__typename}")
	require.NoError(t, err)
	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"__typename": "Query"}, res.Data)
}

func TestWrapLeavesOriginalSchema(t *testing.T) {
	sch := buildSchema(t)
	w := Wrap(executor.NewDefaultRuntime(sch), sch)
	require.NotNil(t, w.Schema.QueryRoot().Field("__schema"))
	require.Nil(t, sch.QueryRoot().Field("__schema"))
	require.Nil(t, sch.Types["__Type"])
}
