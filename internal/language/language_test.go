package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFragmentBareSelection(t *testing.T) {
	frag, err := ParseFragment("User", "firstname lastname")
	require.NoError(t, err)
	require.Equal(t, MainFragmentName, frag.Main.Name)
	require.Equal(t, "User", frag.Main.TypeCondition)
	require.Len(t, frag.Main.SelectionSet, 2)
}

func TestParseFragmentFullDefinition(t *testing.T) {
	frag, err := ParseFragment("User", `
		fragment Other on User { id }
		fragment Main on User { ...Other name }
	`)
	require.NoError(t, err)
	require.Equal(t, "Main", frag.Main.Name)
	require.NotNil(t, frag.Document.Fragments.ForName("Other"))
}

func TestParseFragmentFirstWhenNoMain(t *testing.T) {
	frag, err := ParseFragment("User", `fragment F on User { id }`)
	require.NoError(t, err)
	require.Equal(t, "F", frag.Main.Name)
}

func TestParseFragmentErrors(t *testing.T) {
	_, err := ParseFragment("User", "   ")
	require.Error(t, err)

	_, err = ParseFragment("User", "firstname {")
	require.Error(t, err)
}

func TestDocumentCacheReusesDocuments(t *testing.T) {
	cache, err := NewDocumentCache(2)
	require.NoError(t, err)

	a, err := cache.Query("{ a }")
	require.NoError(t, err)
	again, err := cache.Query("{ a }")
	require.NoError(t, err)
	require.Same(t, a, again)

	f1, err := cache.Fragment("User", "id")
	require.NoError(t, err)
	f2, err := cache.Fragment("Post", "id")
	require.NoError(t, err)
	require.NotSame(t, f1, f2, "type name is part of the key")
	require.Equal(t, 2, cache.Len(), "capacity bounds the cache")
}

func TestDocumentCacheDoesNotKeepErrors(t *testing.T) {
	cache, err := NewDocumentCache(0)
	require.NoError(t, err)
	_, err = cache.Query("{ a ")
	require.Error(t, err)
	require.Equal(t, 0, cache.Len())
}

func TestNilDocumentCacheParses(t *testing.T) {
	var cache *DocumentCache
	doc, err := cache.Query("{ a }")
	require.NoError(t, err)
	require.Len(t, doc.Operations, 1)
	require.Equal(t, 0, cache.Len())
}

func TestDocumentCacheIgnoresCollidingEntries(t *testing.T) {
	cache, err := NewDocumentCache(0)
	require.NoError(t, err)

	other, err := cache.Query("{ b }")
	require.NoError(t, err)
	// Store the document of "{ b }" under the key of "{ a }".
	cache.docs.Add(cacheKey('q', "", "{ a }"), cacheEntry{kind: 'q', text: "{ b }", doc: other})

	doc, err := cache.Query("{ a }")
	require.NoError(t, err)
	require.NotSame(t, other, doc)
	require.Equal(t, "a", doc.Operations[0].SelectionSet[0].(*Field).Name)

	again, err := cache.Query("{ a }")
	require.NoError(t, err)
	require.Same(t, doc, again)
}
