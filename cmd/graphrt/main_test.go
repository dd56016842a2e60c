package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphrt/internal/config"
)

const (
	demoSchema   = "../../tests/remote/schema.graphql"
	demoManifest = "../../tests/remote/remote.yaml"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckPrintsGraph(t *testing.T) {
	out, err := run(t, "check", "--schema", demoSchema, "--manifest", demoManifest)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.ElementsMatch(t, []string{
		"Query.user", "Query.review", "Mutation.addReview", "User.reviews", "User", "Review",
	}, lines)
}

func TestCheckReportsViolations(t *testing.T) {
	dir := t.TempDir()
	sdl := filepath.Join(dir, "schema.graphql")
	require.NoError(t, os.WriteFile(sdl, []byte("type Query { hello: String @resolver }\n"), 0o644))

	out, err := run(t, "check", "--schema", sdl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "violation")
	require.Contains(t, out, "Query.hello")
}

func TestSchemaPrintsSDL(t *testing.T) {
	out, err := run(t, "schema", "--schema", demoSchema)
	require.NoError(t, err)
	require.Contains(t, out, "type Review implements Node")
	require.Contains(t, out, "addReview(")
}

func TestHandlerServesGraphQLAndMetrics(t *testing.T) {
	v := config.New()
	v.Set("schema.paths", []string{demoSchema})
	v.Set("remote.manifest", demoManifest)
	p, err := loadProject(v)
	require.NoError(t, err)
	defer p.Close()

	reg := prometheus.NewRegistry()
	h, err := newHandler(context.Background(), p, reg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ __typename __type(name: \"Review\") { kind } }"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"__typename":"Query","__type":{"kind":"OBJECT"}}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
