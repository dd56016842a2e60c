package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }

type pong struct{}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	b := New()
	var got []int
	unsubA := SubscribeTo(b, func(_ context.Context, p ping) { got = append(got, p.N) })
	unsubB := SubscribeTo(b, func(_ context.Context, p ping) { got = append(got, p.N*10) })

	PublishTo(context.Background(), b, ping{N: 1})
	PublishTo(context.Background(), b, pong{})
	require.Equal(t, []int{1, 10}, got)

	unsubA()
	unsubA()
	PublishTo(context.Background(), b, ping{N: 2})
	require.Equal(t, []int{1, 10, 20}, got)

	unsubB()
	PublishTo(context.Background(), b, ping{N: 3})
	require.Equal(t, []int{1, 10, 20}, got)
}

func TestGlobalBus(t *testing.T) {
	Use(nil)
	require.False(t, Enabled())
	Subscribe(func(context.Context, ping) { t.Fatal("no bus installed") })()
	Publish(context.Background(), ping{})

	b := New()
	Use(b)
	defer Use(nil)
	require.True(t, Enabled())

	calls := 0
	unsub := Subscribe(func(context.Context, ping) { calls++ })
	Publish(context.Background(), ping{})
	unsub()
	Publish(context.Background(), ping{})
	require.Equal(t, 1, calls)
}

func TestNilBus(t *testing.T) {
	var b *Bus
	SubscribeTo(b, func(context.Context, ping) {})()
	PublishTo(context.Background(), b, ping{})
}
