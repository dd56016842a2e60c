package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadTestSchema(t *testing.T) *Schema {
	t.Helper()
	sch, err := LoadFiles("testdata")
	require.NoError(t, err, "failed to load testdata schema")
	return sch
}

func TestSchemaSnapshot(t *testing.T) {
	schema := loadTestSchema(t)

	// Convert to JSON for snapshot comparison
	actual, err := json.MarshalIndent(schema, "", "  ")
	require.NoError(t, err, "failed to marshal schema to JSON")

	// Snapshot file path
	snapshotPath := filepath.Join("testdata", "schema_snapshot.json")

	// If snapshot doesn't exist, create it
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		err := os.WriteFile(snapshotPath, actual, 0644)
		require.NoError(t, err, "failed to write snapshot file")
		t.Logf("Created snapshot file: %s", snapshotPath)
		return
	}

	// Read existing snapshot
	expected, err := os.ReadFile(snapshotPath)
	require.NoError(t, err, "failed to read snapshot file")

	// Compare snapshots
	if diff := cmp.Diff(string(expected), string(actual)); diff != "" {
		t.Errorf("Schema snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaRenderSnapshot(t *testing.T) {
	schema := loadTestSchema(t)

	// Render schema to SDL
	actual := Render(schema)

	snapshotPath := filepath.Join("testdata", "schema_rendered.graphql.golden")
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		err := os.WriteFile(snapshotPath, []byte(actual), 0644)
		require.NoError(t, err, "failed to write snapshot file")
		t.Logf("Created snapshot file: %s", snapshotPath)
		return
	}

	expected, err := os.ReadFile(snapshotPath)
	require.NoError(t, err, "failed to read snapshot file")

	if diff := cmp.Diff(string(expected), actual); diff != "" {
		t.Errorf("Rendered schema snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	schema := loadTestSchema(t)
	again, err := BuildFromSDL(Render(schema))
	require.NoError(t, err)
	if diff := cmp.Diff(Render(schema), Render(again)); diff != "" {
		t.Errorf("render is not stable (-first +second):\n%s", diff)
	}
}

func TestExtensionsMerged(t *testing.T) {
	sch := loadTestSchema(t)

	user := sch.Types["User"]
	require.NotNil(t, user)
	require.NotNil(t, user.Field("posts"), "extension field merged into User")
	require.True(t, user.Field("posts").Resolved)
	require.False(t, user.Field("firstname").Resolved)

	search := sch.QueryRoot().Field("search")
	require.NotNil(t, search)
	require.Equal(t, 10, search.Argument("limit").DefaultValue)
	require.Equal(t, EnumLiteral("GUEST"), search.Argument("role").DefaultValue)
	require.Equal(t, "[SearchResult!]!", search.Type.String())
}

func TestNodeCapability(t *testing.T) {
	sch := loadTestSchema(t)

	require.True(t, sch.IsNodeType("User"))
	require.True(t, sch.IsNodeType("Post"))
	require.False(t, sch.IsNodeType("Query"))
	require.False(t, sch.IsNodeType("Node"), "interfaces are not node-capable themselves")
	require.False(t, sch.IsNodeType("Missing"))

	require.Equal(t, []string{"Post", "User"}, sch.PossibleTypes("Node"))
	require.Equal(t, []string{"Post", "User"}, sch.PossibleTypes("SearchResult"))
	require.True(t, sch.Covers("SearchResult", "Post"))
	require.True(t, sch.Covers("User", "User"))
	require.False(t, sch.Covers("User", "Post"))
}

func TestDeprecatedEnumValue(t *testing.T) {
	sch := loadTestSchema(t)
	role := sch.Types["Role"]
	require.NotNil(t, role)
	var member *EnumValue
	for _, v := range role.EnumValues {
		if v.Name == "MEMBER" {
			member = v
		}
	}
	require.NotNil(t, member)
	require.True(t, member.IsDeprecated)
	require.Equal(t, "use ADMIN or GUEST", member.DeprecationReason)
}

func TestDiscoverFilesSkipsOtherExtensions(t *testing.T) {
	files, err := DiscoverFiles("testdata")
	require.NoError(t, err)
	for _, f := range files {
		require.Contains(t, []string{".graphql", ".graphqls", ".gql"}, filepath.Ext(f))
	}
	require.Contains(t, files, filepath.Join("testdata", "base.graphql"))
}

func TestBuildFromSDLRejectsInvalid(t *testing.T) {
	_, err := BuildFromSDL(`type Query { user: Missing }`)
	require.Error(t, err)
}

func TestBuiltinsNotRendered(t *testing.T) {
	sch := loadTestSchema(t)
	require.True(t, sch.Types["String"].BuiltIn)
	require.True(t, sch.Directives["skip"].BuiltIn)
	require.True(t, sch.Directives[ResolverDirectiveName].BuiltIn)

	sdl := Render(sch)
	require.NotContains(t, sdl, "scalar String")
	require.NotContains(t, sdl, "directive @skip")
	require.NotContains(t, sdl, "directive @resolver")
}

func TestIntrospectionTypes(t *testing.T) {
	types := IntrospectionTypes()
	typ := types["__Type"]
	require.NotNil(t, typ)
	require.Equal(t, TypeKindObject, typ.Kind)
	require.NotNil(t, typ.Field("fields").Argument("includeDeprecated"))
	require.Equal(t, TypeKindEnum, types["__TypeKind"].Kind)
	require.Nil(t, loadTestSchema(t).Types["__Type"])
}
