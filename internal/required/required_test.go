package required

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/fielderr"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
)

const testSDL = `
interface Node { id: ID! }
type Query {
  viewer: User
  node(id: ID!): Node
}
type User implements Node {
  id: ID!
  firstname: String
  lastname: String
  fullName(first: Int): String
  greeting: String
  a: String
  b: String
  c: String
  d: String
  posts(first: Int): [Post!]!
  feed: [Feed!]!
}
type Post implements Node {
  id: ID!
  title: String
  summary: String
}
union Feed = Post | User
`

func noop(context.Context, *dispatch.FieldContext) (any, error) { return nil, nil }

func compile(t *testing.T, bindings ...dispatch.Binding) (*Plan, error) {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	reg, err := dispatch.NewRegistry(dispatch.Module{Name: "test", Bindings: bindings})
	require.NoError(t, err)
	cache, err := language.NewDocumentCache(16)
	require.NoError(t, err)
	return Compile(sch, reg, cache)
}

func coords(s ...string) []dispatch.Coordinate {
	out := make([]dispatch.Coordinate, len(s))
	for i, c := range s {
		parsed, err := dispatch.ParseCoordinate(c)
		if err != nil {
			panic(err)
		}
		out[i] = parsed
	}
	return out
}

func TestCompileAcyclic(t *testing.T) {
	plan, err := compile(t,
		dispatch.Field("User", "fullName", noop, dispatch.Requires("firstname lastname")),
		dispatch.Field("User", "greeting", noop, dispatch.Requires("fullName")),
	)
	require.NoError(t, err)
	require.Equal(t, 2, plan.Len())

	req := plan.For(dispatch.FieldCoordinate("User", "fullName"))
	require.NotNil(t, req)
	require.Equal(t, []string{"firstname", "lastname"}, req.ObjectSelection().Fields())
	require.Nil(t, req.Query)

	require.Empty(t, plan.Dependencies(dispatch.FieldCoordinate("User", "fullName")))
	require.Equal(t, coords("User.fullName"), plan.Dependencies(dispatch.FieldCoordinate("User", "greeting")))
	require.Equal(t, coords("User.fullName", "User.greeting"), plan.Order())
	require.Nil(t, plan.For(dispatch.FieldCoordinate("User", "a")))
}

func TestCompileDiamond(t *testing.T) {
	plan, err := compile(t,
		dispatch.Field("User", "a", noop, dispatch.Requires("b c")),
		dispatch.Field("User", "b", noop, dispatch.Requires("d")),
		dispatch.Field("User", "c", noop, dispatch.Requires("d")),
		dispatch.Field("User", "d", noop),
	)
	require.NoError(t, err)
	require.Equal(t, coords("User.b", "User.c"), plan.Dependencies(dispatch.FieldCoordinate("User", "a")))

	order := plan.Order()
	pos := map[dispatch.Coordinate]int{}
	for i, c := range order {
		pos[c] = i
	}
	require.Less(t, pos[dispatch.FieldCoordinate("User", "d")], pos[dispatch.FieldCoordinate("User", "b")])
	require.Less(t, pos[dispatch.FieldCoordinate("User", "b")], pos[dispatch.FieldCoordinate("User", "a")])
}

func TestCompileCycles(t *testing.T) {
	tests := []struct {
		name     string
		bindings []dispatch.Binding
		want     []dispatch.Coordinate
	}{
		{
			name: "self",
			bindings: []dispatch.Binding{
				dispatch.Field("User", "a", noop, dispatch.Requires("a")),
			},
			want: coords("User.a", "User.a"),
		},
		{
			name: "two",
			bindings: []dispatch.Binding{
				dispatch.Field("User", "a", noop, dispatch.Requires("b")),
				dispatch.Field("User", "b", noop, dispatch.Requires("a")),
			},
			want: coords("User.a", "User.b", "User.a"),
		},
		{
			name: "four behind a tail",
			bindings: []dispatch.Binding{
				dispatch.Field("User", "greeting", noop, dispatch.Requires("a")),
				dispatch.Field("User", "a", noop, dispatch.Requires("b")),
				dispatch.Field("User", "b", noop, dispatch.Requires("c")),
				dispatch.Field("User", "c", noop, dispatch.Requires("d")),
				dispatch.Field("User", "d", noop, dispatch.Requires("firstname a")),
			},
			want: coords("User.a", "User.b", "User.c", "User.d", "User.a"),
		},
		{
			name: "through nested and union selections",
			bindings: []dispatch.Binding{
				dispatch.Field("Post", "summary", noop, dispatch.RequiresQuery("viewer { fullName }")),
				dispatch.Field("User", "fullName", noop, dispatch.Requires("feed { ... on Post { summary } }")),
				dispatch.Field("User", "feed", noop),
			},
			want: coords("Post.summary", "User.fullName", "Post.summary"),
		},
		{
			name: "through interface selection",
			bindings: []dispatch.Binding{
				dispatch.Field("Post", "title", noop, dispatch.RequiresQuery("node(id: \"x\") { id }")),
				dispatch.Field("Post", "id", noop, dispatch.Requires("title")),
			},
			want: coords("Post.title", "Post.id", "Post.title"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.bindings...)
			ce := AsCycleError(err)
			require.NotNil(t, ce, "expected cycle error, got %v", err)
			// Pattern: Result comparison
			if diff := cmp.Diff(tt.want, ce.Cycle); diff != "" {
				t.Errorf("cycle mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCycleErrorMessage(t *testing.T) {
	err := &CycleError{Cycle: coords("User.a", "User.b", "User.a")}
	require.Equal(t, "required selection cycle: User.a -> User.b -> User.a", err.Error())
	require.Nil(t, AsCycleError(errors.New("other")))
}

func TestCompileDeclarationErrors(t *testing.T) {
	tests := map[string]dispatch.Binding{
		"syntax":             dispatch.Field("User", "fullName", noop, dispatch.Requires("firstname {")),
		"unknown field":      dispatch.Field("User", "fullName", noop, dispatch.Requires("nickname")),
		"unknown type":       dispatch.Field("User", "fullName", noop, dispatch.Requires("... on Ghost { id }")),
		"wrong condition":    dispatch.Field("User", "fullName", noop, dispatch.Requires("fragment F on Post { id }")),
		"query field":        dispatch.Field("User", "fullName", noop, dispatch.RequiresQuery("firstname")),
		"unbound variable":   dispatch.Field("User", "fullName", noop, dispatch.Requires("posts(first: $n) { id }")),
		"unknown argument":   dispatch.Field("User", "fullName", noop, dispatch.Requires("posts(first: $n) { id }"), dispatch.WithVariable("n", dispatch.FromArgument("count"))),
		"not in schema":      dispatch.Field("User", "nickname", noop, dispatch.Requires("id")),
		"variable no source": dispatch.Field("User", "fullName", noop, dispatch.WithVariable("n", dispatch.VariableSource{})),
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := compile(t, b)
			var decl *DeclarationError
			require.True(t, errors.As(err, &decl), "got %v", err)
			require.Equal(t, b.Coordinate, decl.Coordinate)
		})
	}
}

func TestCompileReportsEveryDeclaration(t *testing.T) {
	_, err := compile(t,
		dispatch.Field("User", "a", noop, dispatch.Requires("nope")),
		dispatch.Field("User", "b", noop, dispatch.Requires("nada")),
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "User.a")
	require.Contains(t, err.Error(), "User.b")
}

func TestInterfaceFragmentAppliesToImplementation(t *testing.T) {
	plan, err := compile(t,
		dispatch.Field("User", "greeting", noop, dispatch.Requires("fragment Main on Node { id }")),
	)
	require.NoError(t, err)
	set := plan.For(dispatch.FieldCoordinate("User", "greeting")).ObjectSelection()
	require.Equal(t, "User", set.TypeName())
	require.Equal(t, []string{"id"}, set.Fields())
}

func TestBindVariables(t *testing.T) {
	failure := errors.New("no quota")
	plan, err := compile(t,
		dispatch.Field("User", "fullName", noop,
			dispatch.Requires("posts(first: $n) { title }"),
			dispatch.WithVariable("n", dispatch.FromArgument("first")),
		),
		dispatch.Field("User", "greeting", noop,
			dispatch.Requires("posts(first: $n) { title }"),
			dispatch.WithVariable("n", dispatch.FromProvider(func(context.Context, *dispatch.VariableContext) (any, error) {
				return nil, failure
			})),
		),
	)
	require.NoError(t, err)

	vc := &dispatch.VariableContext{Arguments: dispatch.NewValues(map[string]any{"first": 3})}
	vars, err := plan.For(dispatch.FieldCoordinate("User", "fullName")).BindVariables(context.Background(), vc)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"n": 3}, vars)

	_, err = plan.For(dispatch.FieldCoordinate("User", "greeting")).BindVariables(context.Background(), vc)
	require.ErrorIs(t, err, failure)
	require.Equal(t, fielderr.KindRequiredSelection, fielderr.KindOf(err))
	require.False(t, fielderr.IsFatal(err))
}
