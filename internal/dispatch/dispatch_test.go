package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphrt/internal/fielderr"
	"github.com/hanpama/graphrt/internal/policy"
)

func noopField(context.Context, *FieldContext) (any, error) { return nil, nil }

func noopNode(context.Context, *NodeContext) (any, error) { return nil, nil }

func TestCoordinate(t *testing.T) {
	require.Equal(t, "User.fullName", FieldCoordinate("User", "fullName").String())
	require.Equal(t, "User", TypeCoordinate("User").String())
	require.True(t, TypeCoordinate("User").IsType())
	require.False(t, FieldCoordinate("User", "id").IsType())

	c, err := ParseCoordinate("User.fullName")
	require.NoError(t, err)
	require.Equal(t, FieldCoordinate("User", "fullName"), c)

	c, err = ParseCoordinate("User")
	require.NoError(t, err)
	require.Equal(t, TypeCoordinate("User"), c)

	for _, bad := range []string{"", ".x", "User.", "A.b.c"} {
		_, err := ParseCoordinate(bad)
		require.Error(t, err, bad)
	}
}

func TestRegistryLookups(t *testing.T) {
	users := Module{
		Name: "users",
		Bindings: []Binding{
			Node("User", noopNode),
			Field("User", "fullName", noopField, Requires("firstname lastname")),
		},
		Checkers: []CheckerBinding{CheckType("User", policy.DenyIfNoViewer())},
	}
	posts := Module{
		Name: "posts",
		Bindings: []Binding{
			BatchField("User", "posts", func(context.Context, []*FieldContext) ([]FieldValue, error) { return nil, nil }),
		},
		Checkers: []CheckerBinding{Check("User", "posts", policy.AlwaysAllowRule())},
	}
	reg, err := NewRegistry(users, posts)
	require.NoError(t, err)

	require.Equal(t, 3, reg.Len())
	require.Equal(t, []string{"users", "posts"}, reg.Modules())

	full := reg.ResolverFor(FieldCoordinate("User", "fullName"))
	require.NotNil(t, full)
	require.Equal(t, ShapeField, full.Shape)
	require.Equal(t, "users", full.Module)
	require.Equal(t, "firstname lastname", full.Requires.Object)

	require.Nil(t, reg.ResolverFor(TypeCoordinate("User")), "type coordinates are not field resolvers")
	require.Equal(t, ShapeNode, reg.NodeResolverFor("User").Shape)
	require.Nil(t, reg.NodeResolverFor("Post"))

	require.NotNil(t, reg.CheckerFor(TypeCoordinate("User")))
	require.NotNil(t, reg.CheckerFor(FieldCoordinate("User", "posts")))
	require.Nil(t, reg.CheckerFor(FieldCoordinate("User", "fullName")))

	for i, b := range reg.Bindings() {
		require.Equal(t, i, reg.Index(b.Coordinate))
	}
	require.Equal(t, -1, reg.Index(FieldCoordinate("User", "missing")))
	require.Len(t, reg.Checkers(), 2)
}

func TestRegistryDuplicates(t *testing.T) {
	a := Module{Name: "a", Bindings: []Binding{Field("User", "fullName", noopField), Node("User", noopNode)}}
	b := Module{Name: "b", Bindings: []Binding{Field("User", "fullName", noopField), Node("User", noopNode)}}

	_, err := NewRegistry(a, b)
	var dup *DuplicateBindingError
	require.True(t, errors.As(err, &dup))

	// Pattern: Result comparison
	expected := []Duplicate{
		{Coordinate: FieldCoordinate("User", "fullName"), Kind: "resolver", First: "a", Second: "b"},
		{Coordinate: TypeCoordinate("User"), Kind: "resolver", First: "a", Second: "b"},
	}
	if diff := cmp.Diff(expected, dup.Duplicates); diff != "" {
		t.Errorf("duplicates mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, err.Error(), `User.fullName registered by "a" and "b"`)
}

func TestRegistryDuplicateCheckers(t *testing.T) {
	a := Module{Name: "a", Checkers: []CheckerBinding{CheckType("User", policy.AlwaysAllowRule())}}
	b := Module{Name: "b", Checkers: []CheckerBinding{CheckType("User", policy.AlwaysDenyRule())}}
	_, err := NewRegistry(a, b)
	var dup *DuplicateBindingError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, "checker", dup.Duplicates[0].Kind)
}

func TestRegistryRejectsInvalidBindings(t *testing.T) {
	cases := map[string]Binding{
		"zero value":         {},
		"no function":        {Coordinate: FieldCoordinate("User", "x"), Shape: ShapeField},
		"shape mismatch":     {Coordinate: TypeCoordinate("User"), Shape: ShapeField, field: noopField},
		"node with requires": {Coordinate: TypeCoordinate("User"), Shape: ShapeNode, node: noopNode, Requires: &RequiredSelection{Object: "id"}},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(Module{Name: "m", Bindings: []Binding{b}})
			var invalid *InvalidBindingError
			require.True(t, errors.As(err, &invalid))
		})
	}
}

func TestBindingOptions(t *testing.T) {
	provider := func(context.Context, *VariableContext) (any, error) { return 3, nil }
	b := Field("User", "posts", noopField,
		Requires("posts(first: $n) { id }"),
		RequiresQuery("viewer { id }"),
		WithVariable("n", FromArgument("first")),
		WithVariable("m", FromProvider(provider)),
	)
	require.Equal(t, "posts(first: $n) { id }", b.Requires.Object)
	require.Equal(t, "viewer { id }", b.Requires.Query)
	require.Len(t, b.Requires.Variables, 2)
	require.Equal(t, "first", b.Requires.Variables[0].Source.Argument)
	require.NotNil(t, b.Requires.Variables[1].Source.Provider)
	require.True(t, BatchNode("User", nil).Shape.IsBatch())
	require.True(t, BatchNode("User", nil).Shape.IsNode())
}

func TestValues(t *testing.T) {
	v := NewValues(map[string]any{
		"name":  "Ada",
		"age":   "36",
		"admin": true,
		"tags":  []any{"a", "b"},
		"posts": []any{map[string]any{"id": "p1"}, "junk"},
		"owner": map[string]any{"id": "u1"},
	})
	require.Equal(t, "Ada", v.String("name"))
	require.Equal(t, 36, v.Int("age"))
	require.True(t, v.Bool("admin"))
	require.Equal(t, []string{"a", "b"}, v.StringSlice("tags"))
	require.Equal(t, "u1", v.Object("owner").String("id"))
	posts := v.List("posts")
	require.Len(t, posts, 2)
	require.Equal(t, "p1", posts[0].String("id"))
	require.Equal(t, 0, posts[1].Len())
	require.False(t, v.Has("missing"))
	require.Equal(t, []string{"admin", "age", "name", "owner", "posts", "tags"}, v.Keys())

	var zero Values
	require.Equal(t, 0, zero.Len())
	require.Equal(t, "", zero.String("x"))
}

func TestOrderByKeys(t *testing.T) {
	type user struct{ ID string }
	got := OrderByKeys([]string{"b", "x", "a"}, []user{{"a"}, {"b"}}, func(u user) string { return u.ID })
	require.Len(t, got, 3)
	require.Equal(t, user{"b"}, got[0].Value)
	require.ErrorIs(t, got[1].Err, ErrNotFound)
	require.Equal(t, user{"a"}, got[2].Value)
}

func TestGroupByKeys(t *testing.T) {
	type post struct{ Author, ID string }
	groups := GroupByKey([]post{{"u1", "p1"}, {"u2", "p2"}, {"u1", "p3"}}, func(p post) string { return p.Author })
	got := OrderGroupsByKeys([]string{"u1", "u3"}, groups)
	require.Equal(t, []post{{"u1", "p1"}, {"u1", "p3"}}, got[0].Value)
	require.Equal(t, []post{}, got[1].Value)
}

func TestFailed(t *testing.T) {
	cause := errors.New("db down")
	fv := Failed("cannot load", map[string]any{"retry": true}, cause)
	require.ErrorIs(t, fv.Err, cause)
	require.Equal(t, fielderr.KindResolver, fielderr.KindOf(fv.Err))
	require.Equal(t, map[string]any{"retry": true, "code": "RESOLVER_ERROR"}, fielderr.Extensions(fv.Err))
}
