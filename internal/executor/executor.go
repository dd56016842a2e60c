package executor

import (
	"context"
	"fmt"

	"github.com/hanpama/graphrt/internal/bootstrap"
	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/fielderr"
	"github.com/hanpama/graphrt/internal/globalid"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/required"
	"github.com/hanpama/graphrt/internal/schema"
)

type Executor struct {
	runtime     Runtime
	schema      *schema.Schema
	registry    *dispatch.Registry
	plan        *required.Plan
	codec       *globalid.Codec
	concurrency int
}

// Option configures an Executor.
type Option func(*Executor)

// WithService dispatches fields through the bindings, checkers and required
// selections of svc. The executor's schema may extend svc.Schema, for
// instance with introspection fields.
func WithService(svc *bootstrap.Service) Option {
	return func(e *Executor) {
		e.registry = svc.Registry
		e.plan = svc.Plan
		e.codec = svc.Codec
	}
}

// WithConcurrency bounds the number of resolver calls running at once within
// a wave. Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(e *Executor) { e.concurrency = n }
}

// NewExecutor returns an executor for sch. A nil runtime selects
// DefaultRuntime.
func NewExecutor(runtime Runtime, schema *schema.Schema, opts ...Option) *Executor {
	if runtime == nil {
		runtime = NewDefaultRuntime(schema)
	}
	e := &Executor{runtime: runtime, schema: schema}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry, _ = dispatch.NewRegistry()
	}
	return e
}

type callerCtxKey struct{}

// WithCaller attaches the identity of the requester. Resolvers, providers
// and checkers receive it as Caller.
func WithCaller(ctx context.Context, caller any) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, caller)
}

// CallerFromContext returns the value attached with WithCaller.
func CallerFromContext(ctx context.Context) any {
	return ctx.Value(callerCtxKey{})
}

// ExecuteRequest runs one operation of document. Failures before execution
// starts and fatal errors during execution both leave no data tree and set
// Aborted.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := getOperation(document, operationName)
	if operation == nil {
		return requestFailure("operation not found")
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return requestFailure(err.Error())
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.QueryRoot()
	case language.Mutation:
		rootType = e.schema.MutationRoot()
	case language.Subscription:
		rootType = e.schema.SubscriptionRoot()
	default:
		return requestFailure(fmt.Sprintf("unsupported operation type: %s", operation.Operation))
	}

	if rootType == nil {
		return requestFailure(fmt.Sprintf("root type not found for %s operation", operation.Operation))
	}

	errs := []GraphQLError{}
	state := &executionState{
		ctx:    ctx,
		exec:   e,
		schema: e.schema,
		root:   initialValue,
		caller: CallerFromContext(ctx),
		main: &scope{
			fragments: document.Fragments,
			variables: coercedVariableValues,
			errors:    &errs,
		},
		pending: newPendingTable(),
	}

	var data any
	rootSlot := &slot{nullable: true, write: func(v any) { data = v }}
	serial := operation.Operation == language.Mutation
	state.later(state.main, func() {
		state.completeRoot(state.main, rootSlot, rootType, operation.SelectionSet, initialValue, serial)
	})
	state.run()

	if state.fatal != nil {
		fe := fielderr.From(state.fatal)
		errs = append(errs, GraphQLError{Message: fe.Error(), Extensions: fielderr.Extensions(fe)})
		return &ExecutionResult{Errors: errs, Aborted: true}
	}
	return &ExecutionResult{Data: data, Errors: errs}
}

// getOperation retrieves the operation from the document
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		for _, op := range document.Operations {
			return op
		}
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return schema.NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return schema.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

// requestFailure reports an error raised before execution started.
func requestFailure(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: message}}, Aborted: true}
}
