package executor_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphrt/internal/bootstrap"
	"github.com/hanpama/graphrt/internal/dispatch"
	executor "github.com/hanpama/graphrt/internal/executor"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
)

func newExecutor(t *testing.T, sdl string, modules ...dispatch.Module) (*executor.Executor, *bootstrap.Service) {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	svc, err := bootstrap.Build(context.Background(), sch, bootstrap.Options{Modules: modules})
	require.NoError(t, err)
	return executor.NewExecutor(nil, sch, executor.WithService(svc)), svc
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func execute(t *testing.T, exec *executor.Executor, query string, root any) *executor.ExecutionResult {
	t.Helper()
	return exec.ExecuteRequest(context.Background(), mustParseQuery(t, query), "", nil, root)
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func resolverError(msg string, path ...any) executor.GraphQLError {
	return executor.GraphQLError{Message: msg, Path: path, Extensions: map[string]any{"code": "RESOLVER_ERROR"}}
}
