package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
)

// coerceVariableValues checks the request variables against the variable
// definitions of operation. Variables without a value and without a default
// are left out of the result unless they are required.
func coerceVariableValues(sch *schema.Schema, operation *language.OperationDefinition, given map[string]any) (map[string]any, error) {
	c := coercer{sch}
	out := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		name, typ := def.Variable, def.Type
		value, ok := lookupVariable(given, name)
		switch {
		case ok && value == nil && typ.NonNull:
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, typ)
		case ok:
		case def.DefaultValue != nil:
			value = literalValue(def.DefaultValue, nil)
		case typ.NonNull:
			return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, typ)
		default:
			continue
		}
		coerced, err := c.coerce(value, typeRefFromAST(typ))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, typ, err)
		}
		out[name] = coerced
	}
	return out, nil
}

// lookupVariable accepts keys with or without the leading $.
func lookupVariable(given map[string]any, name string) (any, bool) {
	if v, ok := given[name]; ok {
		return v, true
	}
	v, ok := given[strings.TrimPrefix(name, "$")]
	return v, ok
}

// coerceArgumentValues resolves the arguments of one field selection.
// Arguments bound to an absent variable count as omitted, so their default
// applies.
func coerceArgumentValues(sch *schema.Schema, field *schema.Field, arguments language.ArgumentList, variables map[string]any) (map[string]any, error) {
	c := coercer{sch}
	out := make(map[string]any, len(field.Arguments))
	for _, arg := range arguments {
		def := field.Argument(arg.Name)
		if def == nil || isAbsentVariable(arg.Value, variables) {
			continue
		}
		coerced, err := c.coerce(literalValue(arg.Value, variables), def.Type)
		if err != nil {
			return nil, fmt.Errorf("argument '%s' cannot be coerced: %v", arg.Name, err)
		}
		out[arg.Name] = coerced
	}
	for _, def := range field.Arguments {
		if _, ok := out[def.Name]; ok {
			continue
		}
		if def.DefaultValue != nil {
			out[def.Name] = def.DefaultValue
		} else if def.Type.IsNonNull() {
			return nil, fmt.Errorf("argument '%s' of required type was not provided", def.Name)
		}
	}
	return out, nil
}

func isAbsentVariable(v *language.Value, variables map[string]any) bool {
	if v == nil || v.Kind != language.Variable {
		return false
	}
	_, ok := variables[v.Raw]
	return !ok
}

// literalValue converts a query literal to its Go form. Variables are
// substituted at any depth.
func literalValue(v *language.Value, variables map[string]any) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.Variable:
		return variables[v.Raw]
	case language.IntValue:
		n, _ := strconv.Atoi(v.Raw)
		return n
	case language.FloatValue:
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case language.BooleanValue:
		return v.Raw == "true"
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.ListValue:
		items := make([]any, len(v.Children))
		for i, child := range v.Children {
			items[i] = literalValue(child.Value, variables)
		}
		return items
	case language.ObjectValue:
		fields := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			fields[child.Name] = literalValue(child.Value, variables)
		}
		return fields
	}
	return nil
}
