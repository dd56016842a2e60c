// Package executor implements a wave-based GraphQL executor that dispatches
// resolver-backed fields through a dispatch.Registry and batches their calls.
//
// # Overview
//
// A request is executed by a single scheduling goroutine that alternates
// between two phases until no work remains:
//
//	A. Drain
//	   Everything that needs no I/O runs immediately: field collection,
//	   argument coercion, reads of unbound fields through Runtime.ResolveSync,
//	   value completion, and the setup of required-selection sub-fetches.
//	   Resolver calls, node loads, checker evaluations and variable providers
//	   discovered while draining are registered in the pending table.
//
//	B. Wave
//	   Every pending call is launched concurrently (errgroup). Batched
//	   bindings run once per wave with all of their items in registration
//	   order; unbatched bindings run once per item. After every goroutine has
//	   returned, continuations are applied one at a time in registration
//	   order. They may complete values and register work for the next wave.
//
// The wave boundary is the end of a drain, never a timer, so the number of
// waves depends only on the shape of the query and the bindings.
//
// # Required selections
//
// A binding with a required selection does not run until its fragments have
// been executed: the object fragment against the parent value and the query
// fragment against the initial value. Each fragment runs in a scope of its
// own, through the same field pathway, so the fields it selects are batched
// with everything else in the same wave. The completed maps reach the
// resolver as FieldContext.ObjectValue and FieldContext.QueryValue. Any
// error in a scope fails the dependent field with REQUIRED_SELECTION_FAILED
// and an extensions.requiredPath locating the failure.
//
// # Checkers
//
// A field checker runs before the field's required selection and resolver.
// A type checker runs before an object of that type is exposed, and before
// the node loader when the object is looked up by global ID. A denial nulls
// the position with POLICY_DENIED.
//
// # Nodes
//
// A resolver may return a globalid.ID where an object is expected; the
// executor then loads the object through the node binding of the ID's type.
// Query.node and Query.nodes without bindings decode their arguments with the
// codec and load the same way; undecodable IDs yield MALFORMED_ID.
//
// # Errors
//
// Field errors are recorded with their path and extensions.code and null the
// field. A null at a Non-Null position propagates to the nearest nullable
// ancestor, and pending work beneath the nulled position is dropped before
// the next wave. Fatal errors (INTERNAL, including a cancelled request) stop
// execution; the result then has no data.
//
// # Runtime
//
// Runtime supplies the behavior not expressed by bindings: reading unbound
// fields, resolving concrete types of abstract values and serializing
// leaves. DefaultRuntime handles maps, structs and the built-in scalars.
package executor
