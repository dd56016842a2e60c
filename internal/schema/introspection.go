package schema

import (
	"strings"
	"sync"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// IntrospectionTypes returns the __Schema family of types as declared by the
// gqlparser prelude. The map is shared and must not be modified.
var IntrospectionTypes = sync.OnceValue(func() map[string]*Type {
	doc, err := gqlparser.LoadSchema(&ast.Source{Name: "introspection.graphql", Input: "type Query { _: Boolean }"})
	if err != nil {
		panic("schema: loading the introspection prelude: " + err.Error())
	}
	types := make(map[string]*Type)
	for name, def := range doc.Types {
		if strings.HasPrefix(name, "__") {
			t := buildType(doc, def)
			t.BuiltIn = true
			types[name] = t
		}
	}
	return types
})
