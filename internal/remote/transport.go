package remote

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/events"
)

// CoordinateMetadataKey carries the schema coordinate a call serves.
const CoordinateMetadataKey = "graphrt-coordinate"

// ErrClosed is returned by calls on a closed Transport.
var ErrClosed = errors.New("remote: transport closed")

// Transport calls remote resolver services over pooled gRPC connections.
type Transport struct {
	opts *Options

	mu     sync.RWMutex
	pools  map[string]*connPool // key: address
	closed atomic.Bool
}

func NewTransport(opts ...Option) *Transport {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	return &Transport{
		opts:  o,
		pools: make(map[string]*connPool),
	}
}

// Call invokes method of the resolver service at one address of endpoint.
// A default deadline applies when ctx has none.
func (t *Transport) Call(ctx context.Context, endpoint, method, coordinate string, req *structpb.Struct) (*structpb.Struct, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	if t.opts.Provider == nil {
		return nil, errors.New("remote: endpoint provider not configured")
	}
	if _, ok := ctx.Deadline(); !ok && t.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.RPCTimeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, CoordinateMetadataKey, coordinate)

	addrs, err := t.opts.Provider.Endpoints(ctx, endpoint)
	if err == nil && len(addrs) == 0 {
		err = ErrNoEndpoints
	}
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", endpoint, err)
	}
	addr := addrs[rand.IntN(len(addrs))]
	cc, err := t.conn(addr)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Service: ServiceName, Method: method, Target: addr, Coordinate: coordinate})
	resp := new(structpb.Struct)
	err = cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp)
	eventbus.Publish(ctx, events.GRPCClientFinish{
		Service:    ServiceName,
		Method:     method,
		Target:     addr,
		Coordinate: coordinate,
		Code:       status.Code(err),
		Err:        err,
		Duration:   time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, p := range t.pools {
		errs = append(errs, p.close())
	}
	t.pools = map[string]*connPool{}
	return errors.Join(errs...)
}

func (t *Transport) conn(addr string) (*grpc.ClientConn, error) {
	t.mu.RLock()
	pool := t.pools[addr]
	t.mu.RUnlock()
	if pool == nil {
		t.mu.Lock()
		if t.closed.Load() {
			t.mu.Unlock()
			return nil, ErrClosed
		}
		pool = t.pools[addr]
		if pool == nil {
			pool = newConnPool(addr, t.opts)
			t.pools[addr] = pool
		}
		t.mu.Unlock()
	}
	return pool.get()
}

// connPool holds up to size connections to one address, created on demand
// and handed out round-robin. A ClientConn multiplexes concurrent calls, so
// connections are shared rather than checked out.
type connPool struct {
	addr string
	opts *Options

	mu    sync.Mutex
	conns []*grpc.ClientConn
	size  int
	next  atomic.Uint64
}

func newConnPool(addr string, opts *Options) *connPool {
	n := opts.MaxConnsPerEndpoint
	if n <= 0 {
		n = 2
	}
	return &connPool{addr: addr, opts: opts, size: n}
}

func (p *connPool) get() (*grpc.ClientConn, error) {
	i := int(p.next.Add(1)-1) % p.size
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < len(p.conns) {
		return p.conns[i], nil
	}
	cc, err := grpc.NewClient(p.addr, p.opts.DialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.addr, err)
	}
	p.conns = append(p.conns, cc)
	return cc, nil
}

func (p *connPool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, cc := range p.conns {
		errs = append(errs, cc.Close())
	}
	p.conns = nil
	return errors.Join(errs...)
}
