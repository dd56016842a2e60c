package language

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// MainFragmentName names the fragment synthesized from a bare selection.
const MainFragmentName = "Main"

// Fragment is a parsed fragment declaration together with the document it
// came from, so spreads of sibling fragments can be resolved.
type Fragment struct {
	Document *QueryDocument
	Main     *FragmentDefinition
}

// ParseFragment parses fragment text declared against typeName. The text is
// either a bare selection ("id name") or one or more full fragment
// definitions; in the latter case the fragment named Main is used, or the
// first one when none is named Main.
func ParseFragment(typeName, text string) (*Fragment, error) {
	source := strings.TrimSpace(text)
	if source == "" {
		return nil, fmt.Errorf("empty fragment for type %s", typeName)
	}
	if !strings.HasPrefix(source, "fragment ") {
		source = fmt.Sprintf("fragment %s on %s {\n%s\n}", MainFragmentName, typeName, source)
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: typeName + " fragment", Input: source})
	if err != nil {
		return nil, err
	}
	if len(doc.Operations) > 0 {
		return nil, fmt.Errorf("fragment text for type %s must not contain operations", typeName)
	}
	if len(doc.Fragments) == 0 {
		return nil, fmt.Errorf("no fragment found for type %s", typeName)
	}
	main := doc.Fragments.ForName(MainFragmentName)
	if main == nil {
		main = doc.Fragments[0]
	}
	return &Fragment{Document: doc, Main: main}, nil
}
