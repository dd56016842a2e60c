package remote

import (
	"context"
	"errors"
	"sync"
)

// ErrNoEndpoints indicates the provider has no address for an endpoint name.
var ErrNoEndpoints = errors.New("remote: no endpoints available")

// EndpointProvider maps an endpoint name from the manifest to reachable
// addresses (host:port or any gRPC target). Implementations may integrate
// with service discovery and must be safe for concurrent use.
type EndpointProvider interface {
	Endpoints(ctx context.Context, name string) ([]string, error)
}

// StaticEndpoints is a provider backed by an in-memory map.
type StaticEndpoints struct {
	mu   sync.RWMutex
	data map[string][]string
}

func NewStaticEndpoints(m map[string][]string) *StaticEndpoints {
	s := &StaticEndpoints{data: make(map[string][]string, len(m))}
	for name, addrs := range m {
		s.Set(name, addrs...)
	}
	return s
}

// Set replaces the addresses of name.
func (s *StaticEndpoints) Set(name string, addrs ...string) {
	cp := make([]string, len(addrs))
	copy(cp, addrs)
	s.mu.Lock()
	s.data[name] = cp
	s.mu.Unlock()
}

func (s *StaticEndpoints) Endpoints(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.data[name]
	if len(arr) == 0 {
		return nil, ErrNoEndpoints
	}
	out := make([]string, len(arr))
	copy(out, arr)
	return out, nil
}
