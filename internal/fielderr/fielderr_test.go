package fielderr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestKindFatality(t *testing.T) {
	for _, k := range []Kind{KindResolver, KindPolicyDenied, KindMalformedID, KindRequiredSelection} {
		require.False(t, k.Fatal(), k.String())
	}
	require.True(t, KindInternal.Fatal())
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindResolver, KindOf(errors.New("boom")))
	require.Equal(t, KindPolicyDenied, KindOf(fmt.Errorf("wrapped: %w", New(KindPolicyDenied, "no"))))
	require.Equal(t, KindInternal, KindOf(context.Canceled))
	require.Equal(t, KindInternal, KindOf(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	require.True(t, IsFatal(Internal("broken invariant %d", 1)))
	require.False(t, IsFatal(nil))
}

func TestExtensionsIncludeCode(t *testing.T) {
	err := New(KindMalformedID, "bad id").WithExtensions(map[string]any{"input": "zz"})
	want := map[string]any{"code": "MALFORMED_ID", "input": "zz"}
	if diff := cmp.Diff(want, Extensions(err)); diff != "" {
		t.Errorf("extensions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"code": "RESOLVER_ERROR"}, Extensions(errors.New("x"))); diff != "" {
		t.Errorf("extensions mismatch (-want +got):\n%s", diff)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(KindRequiredSelection, cause, "")
	require.Equal(t, "db down", err.Error())
	require.ErrorIs(t, err, cause)
}
