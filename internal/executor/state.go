package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/graphrt/internal/dispatch"
	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/events"
	"github.com/hanpama/graphrt/internal/fielderr"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/schema"
	"github.com/hanpama/graphrt/internal/selection"
)

// executionState is owned by one request. Everything except the pending
// table is touched only by the scheduling goroutine.
type executionState struct {
	ctx    context.Context
	exec   *Executor
	schema *schema.Schema
	root   any
	caller any

	main    *scope
	queue   []task
	pending *pendingTable
	fatal   error
	waves   int
}

type task struct {
	scope *scope
	fn    func()
}

// scope groups the work of one selection: the request itself, one step of a
// serial mutation, or one required-selection sub-fetch. pending counts
// queued tasks, outstanding calls and held sub-scopes; onDone fires when it
// drops to zero.
type scope struct {
	fragments language.FragmentDefinitionList
	variables map[string]any
	errors    *[]GraphQLError
	pending   int
	onDone    func()
	sets      map[setKey]*selection.Set
}

type setKey struct {
	field  *language.Field
	parent string
	n      int
}

// slot is one position in a result tree.
type slot struct {
	parent   *slot
	key      PathElement
	nullable bool
	dead     bool
	write    func(any)
}

func (s *slot) child(key PathElement, nullable bool, write func(any)) *slot {
	return &slot{parent: s, key: key, nullable: nullable, write: write}
}

func (s *slot) path() Path {
	n := 0
	for c := s; c != nil; c = c.parent {
		if c.key != nil {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	p := make(Path, n)
	for c := s; c != nil; c = c.parent {
		if c.key != nil {
			n--
			p[n] = c.key
		}
	}
	return p
}

func (s *slot) isDead() bool {
	for c := s; c != nil; c = c.parent {
		if c.dead {
			return true
		}
	}
	return false
}

// nullify writes null at the nearest nullable position at or above s and
// retires that subtree. Roots are always nullable.
func (s *slot) nullify() {
	c := s
	for !c.nullable && c.parent != nil {
		c = c.parent
	}
	c.write(nil)
	c.dead = true
}

func (st *executionState) later(sc *scope, fn func()) {
	sc.pending++
	st.queue = append(st.queue, task{scope: sc, fn: fn})
}

func (st *executionState) hold(sc *scope) { sc.pending++ }

func (st *executionState) release(sc *scope) {
	sc.pending--
	if sc.pending == 0 && sc.onDone != nil {
		done := sc.onDone
		sc.onDone = nil
		done()
	}
}

func (st *executionState) abort(err error) {
	if st.fatal == nil {
		st.fatal = err
	}
}

func (st *executionState) drain() {
	for len(st.queue) > 0 && st.fatal == nil {
		t := st.queue[0]
		st.queue[0] = task{}
		st.queue = st.queue[1:]
		t.fn()
		st.release(t.scope)
	}
}

// run alternates draining synchronous work with waves of concurrent calls
// until no work remains or a fatal error occurs.
func (st *executionState) run() {
	for st.fatal == nil {
		st.drain()
		if st.fatal != nil {
			return
		}
		work := st.takeLive()
		if len(work) == 0 {
			if len(st.queue) > 0 {
				continue
			}
			return
		}
		if err := st.ctx.Err(); err != nil {
			st.abort(fielderr.Wrap(fielderr.KindInternal, err, "request cancelled: "+err.Error()))
			return
		}
		st.wave(work)
	}
}

func (st *executionState) wave(work []unit) {
	st.waves++
	start := time.Now()
	applies := make([]func(), len(work))

	var g errgroup.Group
	if st.exec.concurrency > 0 {
		g.SetLimit(st.exec.concurrency)
	}
	for i, u := range work {
		g.Go(func() error {
			applies[i] = st.launch(u)
			return nil
		})
	}
	_ = g.Wait()

	for _, apply := range applies {
		if st.fatal != nil {
			break
		}
		apply()
	}
	eventbus.Publish(st.ctx, events.WaveFinish{Wave: st.waves, Calls: len(work), Duration: time.Since(start)})
}

// unit is either a *call or a *batch.
type unit any

// call is one unbatched invocation: a resolver, a node loader, a checker or
// a variable provider.
type call struct {
	slot       *slot
	scope      *scope
	coordinate dispatch.Coordinate
	kind       string
	run        func(ctx context.Context) (any, error)
	done       func(any, error)
}

type batchItem struct {
	slot  *slot
	scope *scope
	field *dispatch.FieldContext
	node  *dispatch.NodeContext
	done  func(any, error)
}

// batch collects every item registered for one batched binding in a wave.
type batch struct {
	binding *dispatch.Binding
	items   []*batchItem
}

// pendingTable holds the calls registered for the next wave, in
// registration order. Batches keep the position of their first item.
type pendingTable struct {
	mu      sync.Mutex
	order   []unit
	batches map[*dispatch.Binding]*batch
}

func newPendingTable() *pendingTable {
	return &pendingTable{batches: make(map[*dispatch.Binding]*batch)}
}

func (p *pendingTable) addCall(c *call) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.order = append(p.order, c)
}

func (p *pendingTable) addBatchItem(b *dispatch.Binding, it *batchItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bt := p.batches[b]
	if bt == nil {
		bt = &batch{binding: b}
		p.batches[b] = bt
		p.order = append(p.order, bt)
	}
	bt.items = append(bt.items, it)
}

func (p *pendingTable) take() []unit {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.order
	p.order = nil
	clear(p.batches)
	return out
}

func (st *executionState) enqueue(c *call) {
	st.hold(c.scope)
	st.pending.addCall(c)
}

func (st *executionState) enqueueBatch(b *dispatch.Binding, it *batchItem) {
	st.hold(it.scope)
	st.pending.addBatchItem(b, it)
}

// takeLive drains the pending table, dropping work whose result position
// was nulled in the meantime.
func (st *executionState) takeLive() []unit {
	var live []unit
	for _, u := range st.pending.take() {
		switch u := u.(type) {
		case *call:
			if u.slot != nil && u.slot.isDead() {
				st.release(u.scope)
				continue
			}
			live = append(live, u)
		case *batch:
			items := u.items[:0]
			for _, it := range u.items {
				if it.slot.isDead() {
					st.release(it.scope)
					continue
				}
				items = append(items, it)
			}
			if len(items) > 0 {
				u.items = items
				live = append(live, u)
			}
		}
	}
	return live
}

// launch performs the I/O of u on the calling goroutine and returns the
// continuation to apply on the scheduling goroutine.
func (st *executionState) launch(u unit) func() {
	switch u := u.(type) {
	case *call:
		start := time.Now()
		var v any
		err := protect(u.coordinate, func() (err error) {
			v, err = u.run(st.ctx)
			return err
		})
		st.publishFinish(u.coordinate, u.kind, 1, err, start, failedCount(err))
		return func() {
			if u.slot == nil || !u.slot.isDead() {
				u.done(v, err)
			}
			st.release(u.scope)
		}
	case *batch:
		return st.launchBatch(u)
	}
	panic(fmt.Sprintf("executor: unknown unit %T", u))
}

func (st *executionState) launchBatch(b *batch) func() {
	start := time.Now()
	var results []dispatch.FieldValue
	err := protect(b.binding.Coordinate, func() (err error) {
		if b.binding.Shape.IsNode() {
			ncs := make([]*dispatch.NodeContext, len(b.items))
			for i, it := range b.items {
				ncs[i] = it.node
			}
			results, err = b.binding.LoadBatch(st.ctx, ncs)
		} else {
			fcs := make([]*dispatch.FieldContext, len(b.items))
			for i, it := range b.items {
				fcs[i] = it.field
			}
			results, err = b.binding.CallBatch(st.ctx, fcs)
		}
		return err
	})
	if err == nil && len(results) != len(b.items) {
		err = fielderr.Newf(fielderr.KindResolver, "%s returned %d results for %d items", b.binding.Coordinate, len(results), len(b.items))
	}
	failed := len(b.items)
	if err == nil {
		failed = 0
		for _, r := range results {
			if r.Err != nil && !errors.Is(r.Err, dispatch.ErrNotFound) {
				failed++
			}
		}
	}
	st.publishFinish(b.binding.Coordinate, b.binding.Shape.String(), len(b.items), err, start, failed)

	return func() {
		for i, it := range b.items {
			if !it.slot.isDead() && st.fatal == nil {
				if err != nil {
					it.done(nil, err)
				} else {
					it.done(results[i].Value, results[i].Err)
				}
			}
			st.release(it.scope)
		}
	}
}

// protect converts a panic in resolver code into a resolver error.
func protect(c dispatch.Coordinate, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fielderr.Newf(fielderr.KindResolver, "panic in %s: %v", c, r)
		}
	}()
	return fn()
}

func failedCount(err error) int {
	if err == nil || errors.Is(err, dispatch.ErrNotFound) {
		return 0
	}
	return 1
}

func (st *executionState) publishFinish(c dispatch.Coordinate, kind string, items int, err error, start time.Time, failed int) {
	if !eventbus.Enabled() {
		return
	}
	ev := events.ResolverFinish{
		Coordinate: c.String(),
		Shape:      kind,
		Items:      items,
		Failed:     failed,
		Err:        err,
		Duration:   time.Since(start),
	}
	if err != nil {
		ev.Kind = fielderr.KindOf(err).Code()
	}
	eventbus.Publish(st.ctx, ev)
}

// classify decides the kind of an error returned by user code. A context
// error counts as fatal only when the request itself was cancelled.
func (st *executionState) classify(err error) *fielderr.Error {
	var fe *fielderr.Error
	if errors.As(err, &fe) {
		return fe
	}
	if st.ctx.Err() == nil {
		return fielderr.Wrap(fielderr.KindResolver, err, "")
	}
	return fielderr.From(err)
}

func (st *executionState) record(sc *scope, path Path, err error) {
	*sc.errors = append(*sc.errors, GraphQLError{
		Message:    err.Error(),
		Path:       path,
		Extensions: fielderr.Extensions(err),
	})
}

// fail records err at s and nulls the nearest nullable position. Fatal
// errors abort the request instead.
func (st *executionState) fail(sc *scope, s *slot, err error) {
	fe := st.classify(err)
	if fe.Kind.Fatal() {
		st.abort(fe)
		return
	}
	st.record(sc, s.path(), fe)
	s.nullify()
}

// null writes null at s, reporting a violation when s is non-null.
func (st *executionState) null(sc *scope, s *slot) {
	if s.nullable {
		s.write(nil)
		return
	}
	st.record(sc, s.path(), fielderr.Newf(fielderr.KindResolver, "Cannot return null for non-nullable field %s", s.path()))
	s.nullify()
}
