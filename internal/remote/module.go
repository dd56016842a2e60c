package remote

import (
	"context"
	"fmt"
	"sort"

	"google.golang.org/grpc/status"

	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/fielderr"
	"github.com/hanpama/graphrt/internal/policy"
)

// ModuleName names the module returned by Module.
const ModuleName = "remote"

// Module turns a manifest into dispatch bindings whose functions call the
// declared backends through t.
func Module(m *Manifest, t *Transport) (dispatch.Module, error) {
	if err := m.Validate(); err != nil {
		return dispatch.Module{}, err
	}
	mod := dispatch.Module{Name: ModuleName}
	for _, spec := range m.Resolvers {
		c, _ := dispatch.ParseCoordinate(spec.Coordinate)
		mod.Bindings = append(mod.Bindings, fieldBinding(t, c, spec))
	}
	for _, spec := range m.Nodes {
		mod.Bindings = append(mod.Bindings, nodeBinding(t, spec))
	}
	for _, spec := range m.Checkers {
		c, _ := dispatch.ParseCoordinate(spec.Coordinate)
		cb := dispatch.CheckerBinding{Coordinate: c, Policy: checkRule(t, c, spec.Endpoint)}
		mod.Checkers = append(mod.Checkers, cb)
	}
	return mod, nil
}

func fieldBinding(t *Transport, c dispatch.Coordinate, spec ResolverSpec) dispatch.Binding {
	var opts []dispatch.Option
	if spec.Requires != "" {
		opts = append(opts, dispatch.Requires(spec.Requires))
	}
	if spec.RequiresQuery != "" {
		opts = append(opts, dispatch.RequiresQuery(spec.RequiresQuery))
	}
	names := make([]string, 0, len(spec.Variables))
	for name := range spec.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, dispatch.WithVariable(name, dispatch.FromArgument(spec.Variables[name])))
	}

	coordinate := c.String()
	if spec.Batched {
		return dispatch.BatchField(c.TypeName, c.FieldName, func(ctx context.Context, fcs []*dispatch.FieldContext) ([]dispatch.FieldValue, error) {
			reqs := make([]*Request, len(fcs))
			for i, fc := range fcs {
				reqs[i] = fieldRequest(fc)
			}
			return resolveBatch(ctx, t, spec.Endpoint, coordinate, reqs)
		}, opts...)
	}
	return dispatch.Field(c.TypeName, c.FieldName, func(ctx context.Context, fc *dispatch.FieldContext) (any, error) {
		return resolve(ctx, t, spec.Endpoint, coordinate, fieldRequest(fc))
	}, opts...)
}

func nodeBinding(t *Transport, spec NodeSpec) dispatch.Binding {
	if spec.Batched {
		return dispatch.BatchNode(spec.Type, func(ctx context.Context, ncs []*dispatch.NodeContext) ([]dispatch.FieldValue, error) {
			reqs := make([]*Request, len(ncs))
			for i, nc := range ncs {
				reqs[i] = &Request{Coordinate: spec.Type, ID: nc.ID.InternalID}
			}
			return resolveBatch(ctx, t, spec.Endpoint, spec.Type, reqs)
		})
	}
	return dispatch.Node(spec.Type, func(ctx context.Context, nc *dispatch.NodeContext) (any, error) {
		return resolve(ctx, t, spec.Endpoint, spec.Type, &Request{Coordinate: spec.Type, ID: nc.ID.InternalID})
	})
}

func fieldRequest(fc *dispatch.FieldContext) *Request {
	return &Request{
		Coordinate: fc.Coordinate.String(),
		Arguments:  fc.Arguments.Map(),
		Object:     fc.ObjectValue.Map(),
		Query:      fc.QueryValue.Map(),
	}
}

func resolve(ctx context.Context, t *Transport, endpoint, coordinate string, req *Request) (any, error) {
	payload, err := encodeRequest(req)
	if err != nil {
		return nil, fielderr.Wrap(fielderr.KindResolver, err, fmt.Sprintf("remote %s: %v", coordinate, err))
	}
	resp, err := t.Call(ctx, endpoint, MethodResolve, coordinate, payload)
	if err != nil {
		return nil, callError(coordinate, err)
	}
	r := decodeResult(resp.AsMap())
	if r.Err != nil {
		return nil, itemError(r.Err)
	}
	return r.Value, nil
}

func resolveBatch(ctx context.Context, t *Transport, endpoint, coordinate string, reqs []*Request) ([]dispatch.FieldValue, error) {
	payload, err := encodeBatch(coordinate, reqs)
	if err != nil {
		return nil, fielderr.Wrap(fielderr.KindResolver, err, fmt.Sprintf("remote %s: %v", coordinate, err))
	}
	resp, err := t.Call(ctx, endpoint, MethodResolveBatch, coordinate, payload)
	if err != nil {
		return nil, callError(coordinate, err)
	}
	items := resp.GetFields()["results"].GetListValue().GetValues()
	out := make([]dispatch.FieldValue, len(items))
	for i, item := range items {
		r := decodeResult(item.GetStructValue().AsMap())
		if r.Err != nil {
			out[i] = dispatch.Failure(itemError(r.Err))
		} else {
			out[i] = dispatch.Value(r.Value)
		}
	}
	return out, nil
}

func checkRule(t *Transport, c dispatch.Coordinate, endpoint string) policy.Rule {
	coordinate := c.String()
	return policy.RuleFunc(func(ctx context.Context, s *policy.Subject) error {
		req := &CheckRequest{Coordinate: coordinate, TypeName: s.TypeName, FieldName: s.FieldName, Arguments: s.Arguments}
		if obj, ok := s.Object.(map[string]any); ok {
			req.Object = obj
		}
		if s.ID != nil {
			req.ID = s.ID.InternalID
		}
		payload, err := encodeCheck(req)
		if err != nil {
			return err
		}
		resp, err := t.Call(ctx, endpoint, MethodCheck, coordinate, payload)
		if err != nil {
			return callError(coordinate, err)
		}
		message := resp.GetFields()["message"].GetStringValue()
		switch Decision(resp.GetFields()["decision"].GetStringValue()) {
		case Allow:
			return policy.Allow
		case Deny:
			if message == "" {
				return policy.Denyf("access to %s denied", coordinate)
			}
			return policy.Denyf("%s", message)
		default:
			return policy.Skip
		}
	})
}

func callError(coordinate string, err error) error {
	return fielderr.Wrap(fielderr.KindResolver, err, fmt.Sprintf("remote %s: %s", coordinate, status.Convert(err).Message()))
}

func itemError(err error) error {
	re, ok := err.(*Error)
	if !ok {
		return fielderr.Wrap(fielderr.KindResolver, err, "")
	}
	fe := fielderr.New(fielderr.KindResolver, re.Message)
	if len(re.Extensions) > 0 {
		fe = fe.WithExtensions(re.Extensions)
	}
	return fe
}
