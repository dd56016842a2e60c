package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
)

const testSDL = `
interface Node { id: ID! }
type Query {
  node(id: ID!): Node
  user(id: ID!): User
  search(term: String!): [SearchResult!]!
}
type User implements Node {
  id: ID!
  firstname: String
  lastname: String
  fullName: String @resolver
  posts: [Post!]!
}
type Post implements Node {
  id: ID!
  title: String!
  author: User
}
union SearchResult = User | Post
`

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	return sch
}

func fromQuery(t *testing.T, sch *schema.Schema, query string, vars map[string]any) *Set {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	set, err := FromSelectionSet(sch, "Query", doc.Operations[0].SelectionSet, Source{Fragments: doc.Fragments, Variables: vars})
	require.NoError(t, err)
	return set
}

func TestContainsAndSelectionSetFor(t *testing.T) {
	sch := testSchema(t)
	set := fromQuery(t, sch, `{ user(id: "u1") { firstname posts { title } } }`, nil)

	require.True(t, set.Contains("user"))
	require.False(t, set.Contains("search"))

	user := set.SelectionSetFor("user")
	require.Equal(t, "User", user.TypeName())
	require.Equal(t, []string{"firstname", "posts"}, user.Fields())

	leaf := user.SelectionSetFor("firstname")
	require.True(t, leaf.IsEmpty())
	require.Equal(t, "String", leaf.TypeName())

	missing := user.SelectionSetFor("lastname")
	require.True(t, missing.IsEmpty())
	require.Equal(t, "String", missing.TypeName())

	posts := user.SelectionSetFor("posts")
	require.Equal(t, "Post", posts.TypeName())
	require.True(t, posts.Contains("title"))
}

func TestRequestsTypeOnUnion(t *testing.T) {
	sch := testSchema(t)
	set := fromQuery(t, sch, `{ search(term: "x") { ... on Post { title } } }`, nil)

	search := set.SelectionSetFor("search")
	require.True(t, search.RequestsType("Post"))
	require.False(t, search.RequestsType("User"))
	require.True(t, search.Contains("title"))
}

func TestRequestsTypeThroughInterfaceCondition(t *testing.T) {
	sch := testSchema(t)
	set := fromQuery(t, sch, `{ node(id: "x") { ... on Node { id } } }`, nil)

	node := set.SelectionSetFor("node")
	require.True(t, node.RequestsType("User"))
	require.True(t, node.RequestsType("Post"))
}

func TestNarrowTo(t *testing.T) {
	sch := testSchema(t)
	set := fromQuery(t, sch, `
		query { search(term: "x") { __typename ...P ... on User { firstname } } }
		fragment P on Post { title author { id } }
	`, nil)

	search := set.SelectionSetFor("search")
	post := search.NarrowTo("Post")
	require.Equal(t, "Post", post.TypeName())
	require.Equal(t, []string{"__typename", "title", "author"}, post.Fields())
	require.False(t, post.Contains("firstname"))

	user := search.NarrowTo("User")
	require.Equal(t, []string{"__typename", "firstname"}, user.Fields())

	again := search.NarrowTo("Post")
	require.True(t, post.Equal(again), "narrowing is pure")
}

func TestNarrowingIdempotence(t *testing.T) {
	sch := testSchema(t)
	set := fromQuery(t, sch, `{ user(id: "u") { posts { author { firstname } } } }`, nil)

	first := set.SelectionSetFor("user").SelectionSetFor("posts")
	second := set.SelectionSetFor("user").SelectionSetFor("posts")
	require.True(t, first.Equal(second))
	require.True(t, first.SelectionSetFor("author").Equal(second.SelectionSetFor("author")))
}

func TestEmpty(t *testing.T) {
	sch := testSchema(t)
	for _, name := range []string{"User", "Post", "Query", "SearchResult"} {
		e := Empty(sch, name)
		require.True(t, e.IsEmpty(), name)
		require.False(t, e.RequestsType(name), name)
		require.False(t, e.RequestsType("User"), name)
		require.Nil(t, e.Fields())
	}
	var nilSet *Set
	require.True(t, nilSet.IsEmpty())
	require.False(t, nilSet.RequestsType("User"))
}

func TestEqualIgnoresOrderAndAliases(t *testing.T) {
	sch := testSchema(t)
	a := fromQuery(t, sch, `{ user(id: "1") { firstname lastname } }`, nil)
	b := fromQuery(t, sch, `{ u: user(id: "2") { lastname first: firstname } }`, nil)
	c := fromQuery(t, sch, `{ user(id: "1") { firstname } }`, nil)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.Equal(t, a.String(), b.String())
}

func TestMergedAliasesCombineChildren(t *testing.T) {
	sch := testSchema(t)
	set := fromQuery(t, sch, `{ a: user(id: "1") { firstname } b: user(id: "2") { lastname } }`, nil)
	require.Equal(t, []string{"firstname", "lastname"}, set.SelectionSetFor("user").Fields())
}

func TestSkipAndInclude(t *testing.T) {
	sch := testSchema(t)
	query := `query($x: Boolean!) { user(id: "1") { firstname @skip(if: $x) lastname @include(if: false) id } }`

	skipped := fromQuery(t, sch, query, map[string]any{"x": true})
	require.Equal(t, []string{"id"}, skipped.SelectionSetFor("user").Fields())

	unknown := fromQuery(t, sch, query, nil)
	require.Equal(t, []string{"firstname", "id"}, unknown.SelectionSetFor("user").Fields())
}

func TestFromFragment(t *testing.T) {
	sch := testSchema(t)
	frag, err := language.ParseFragment("User", "firstname lastname")
	require.NoError(t, err)
	set, err := FromFragment(sch, frag)
	require.NoError(t, err)
	require.Equal(t, "User", set.TypeName())
	require.Equal(t, "{ firstname lastname }", set.String())
}

func TestFromFragmentErrors(t *testing.T) {
	sch := testSchema(t)
	cases := map[string]string{
		"unknown field":     "nickname",
		"unknown condition": "... on Ghost { id }",
		"leaf selection":    "firstname { x }",
		"missing selection": "posts",
		"unknown spread":    "...Missing",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			frag, err := language.ParseFragment("User", text)
			require.NoError(t, err)
			_, err = FromFragment(sch, frag)
			require.Error(t, err)
		})
	}
}

func TestSelfSpreadRejected(t *testing.T) {
	sch := testSchema(t)
	frag, err := language.ParseFragment("User", "fragment Main on User { id ...Main }")
	require.NoError(t, err)
	_, err = FromFragment(sch, frag)
	require.Error(t, err)
}
