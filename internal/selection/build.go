package selection

import (
	"fmt"
	"strings"

	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
)

// Source carries what a selection needs beyond its own AST: fragment
// definitions for spreads and variable values for @skip/@include. A
// directive whose variable is missing keeps its node.
type Source struct {
	Fragments language.FragmentDefinitionList
	Variables map[string]any
}

// FromSelectionSet builds a Set for typeName from an AST selection. Fields
// and type conditions are checked against sch.
func FromSelectionSet(sch *schema.Schema, typeName string, sel language.SelectionSet, src Source) (*Set, error) {
	if sch.Types[typeName] == nil {
		return nil, fmt.Errorf("unknown type %q", typeName)
	}
	b := &builder{schema: sch, src: src}
	out := Empty(sch, typeName)
	if err := b.fill(out, typeName, sel, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// FromFragment builds a Set from a parsed fragment, against the fragment's
// own type condition.
func FromFragment(sch *schema.Schema, frag *language.Fragment) (*Set, error) {
	return FromSelectionSet(sch, frag.Main.TypeCondition, frag.Main.SelectionSet, Source{Fragments: frag.Document.Fragments})
}

type builder struct {
	schema *schema.Schema
	src    Source
}

func (b *builder) fill(set *Set, cond string, sel language.SelectionSet, visiting []string) error {
	condType := b.schema.Types[cond]
	if condType == nil {
		return fmt.Errorf("unknown type %q in type condition", cond)
	}
	if !condType.IsComposite() {
		return fmt.Errorf("type %q cannot have a selection", cond)
	}
	for _, node := range sel {
		switch n := node.(type) {
		case *language.Field:
			if !b.included(n.Directives) {
				continue
			}
			child, err := b.field(condType, n, visiting)
			if err != nil {
				return err
			}
			set.branchFor(cond).add(n.Name, child)
		case *language.InlineFragment:
			if !b.included(n.Directives) {
				continue
			}
			inner := cond
			if n.TypeCondition != "" {
				inner = n.TypeCondition
			}
			if err := b.fill(set, inner, n.SelectionSet, visiting); err != nil {
				return err
			}
		case *language.FragmentSpread:
			if !b.included(n.Directives) {
				continue
			}
			for _, name := range visiting {
				if name == n.Name {
					return fmt.Errorf("fragment %q spreads itself", n.Name)
				}
			}
			def := b.src.Fragments.ForName(n.Name)
			if def == nil {
				return fmt.Errorf("unknown fragment %q", n.Name)
			}
			inner := def.TypeCondition
			if inner == "" {
				inner = cond
			}
			if err := b.fill(set, inner, def.SelectionSet, append(visiting, n.Name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) field(parent *schema.Type, f *language.Field, visiting []string) (*Set, error) {
	if strings.HasPrefix(f.Name, "__") {
		return Empty(b.schema, ""), nil
	}
	def := parent.Field(f.Name)
	if def == nil {
		return nil, fmt.Errorf("cannot query field %q on type %q", f.Name, parent.Name)
	}
	named := def.Type.GetNamedType()
	child := Empty(b.schema, named)
	t := b.schema.Types[named]
	if t == nil {
		return nil, fmt.Errorf("unknown type %q for field %s.%s", named, parent.Name, f.Name)
	}
	if !t.IsComposite() {
		if len(f.SelectionSet) > 0 {
			return nil, fmt.Errorf("field %s.%s of type %s cannot have a selection", parent.Name, f.Name, named)
		}
		return child, nil
	}
	if len(f.SelectionSet) == 0 {
		return nil, fmt.Errorf("field %s.%s of type %s must have a selection", parent.Name, f.Name, named)
	}
	if err := b.fill(child, named, f.SelectionSet, visiting); err != nil {
		return nil, err
	}
	return child, nil
}

func (b *builder) included(directives language.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil {
		if v, ok := b.condition(d); ok && v {
			return false
		}
	}
	if d := directives.ForName("include"); d != nil {
		if v, ok := b.condition(d); ok && !v {
			return false
		}
	}
	return true
}

// condition evaluates the if argument. ok is false when the value is not
// known, as with variables during bootstrap.
func (b *builder) condition(d *language.Directive) (value bool, ok bool) {
	arg := d.Arguments.ForName("if")
	if arg == nil || arg.Value == nil {
		return false, false
	}
	if arg.Value.Kind == language.Variable {
		v, found := b.src.Variables[arg.Value.Raw]
		if !found {
			return false, false
		}
		value, ok = v.(bool)
		return value, ok
	}
	return arg.Value.Raw == "true", true
}
