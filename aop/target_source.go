package aop

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/km-arc/go-ioc-container/cerrors"
)

// SingletonTargetSource always returns the same object.
type SingletonTargetSource struct {
	Target interface{}
}

func (s *SingletonTargetSource) TargetType() reflect.Type                       { return reflect.TypeOf(s.Target) }
func (s *SingletonTargetSource) GetTarget(context.Context) (interface{}, error) { return s.Target, nil }
func (s *SingletonTargetSource) ReleaseTarget(context.Context, interface{}) error { return nil }
func (s *SingletonTargetSource) IsStatic() bool                                 { return true }

// PrototypeProducer builds a fresh target instance, typically a bound
// getBean call.
type PrototypeProducer func(ctx context.Context) (interface{}, error)

// PrototypeTargetSource calls Producer for every invocation.
type PrototypeTargetSource struct {
	Type     reflect.Type
	Producer PrototypeProducer
}

func (s *PrototypeTargetSource) TargetType() reflect.Type { return s.Type }
func (s *PrototypeTargetSource) GetTarget(ctx context.Context) (interface{}, error) {
	return s.Producer(ctx)
}
func (s *PrototypeTargetSource) ReleaseTarget(context.Context, interface{}) error { return nil }
func (s *PrototypeTargetSource) IsStatic() bool                                   { return false }

type threadKeyT struct{}

var threadKey = threadKeyT{}

// WithThreadID tags ctx with a logical-thread identity for
// PerThreadTargetSource, since Go has no goroutine-local storage; callers
// that want per-thread targets must carry a stable identifier through
// their own call chain the way singleton.WithChainName carries the
// creation chain.
func WithThreadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, threadKey, id)
}

func threadID(ctx context.Context) string {
	if id, ok := ctx.Value(threadKey).(string); ok {
		return id
	}
	return ""
}

// PerThreadTargetSource creates one target per logical thread id, on first
// touch, and disposes them all on Shutdown.
type PerThreadTargetSource struct {
	Type     reflect.Type
	Producer PrototypeProducer

	mu      sync.Mutex
	targets map[string]interface{}
}

func NewPerThreadTargetSource(t reflect.Type, producer PrototypeProducer) *PerThreadTargetSource {
	return &PerThreadTargetSource{Type: t, Producer: producer, targets: make(map[string]interface{})}
}

func (s *PerThreadTargetSource) TargetType() reflect.Type { return s.Type }

func (s *PerThreadTargetSource) GetTarget(ctx context.Context) (interface{}, error) {
	id := threadID(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.targets[id]; ok {
		return t, nil
	}
	t, err := s.Producer(ctx)
	if err != nil {
		return nil, err
	}
	s.targets[id] = t
	return t, nil
}

func (s *PerThreadTargetSource) ReleaseTarget(context.Context, interface{}) error { return nil }
func (s *PerThreadTargetSource) IsStatic() bool                                   { return false }

// Shutdown destroys every thread-bound instance that implements Disposable.
func (s *PerThreadTargetSource) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.targets {
		if d, ok := t.(interface{ Destroy() error }); ok {
			_ = d.Destroy()
		}
		delete(s.targets, id)
	}
}

// PooledTargetSource checks out an object from a bounded pool on
// GetTarget, blocking with a configurable timeout when exhausted; returned
// on ReleaseTarget.
type PooledTargetSource struct {
	Type     reflect.Type
	Producer PrototypeProducer
	Timeout  time.Duration

	// tokens gates how many instances may exist at once; pool carries
	// instances currently checked in. A token is consumed only the first
	// time an instance is created for it, so returning an instance never
	// needs to return its token separately.
	tokens chan struct{}
	pool   chan interface{}
}

func NewPooledTargetSource(t reflect.Type, size int, timeout time.Duration, producer PrototypeProducer) *PooledTargetSource {
	tokens := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		tokens <- struct{}{}
	}
	return &PooledTargetSource{Type: t, Producer: producer, Timeout: timeout, tokens: tokens, pool: make(chan interface{}, size)}
}

func (s *PooledTargetSource) TargetType() reflect.Type { return s.Type }

func (s *PooledTargetSource) GetTarget(ctx context.Context) (interface{}, error) {
	select {
	case t := <-s.pool:
		return t, nil
	case <-s.tokens:
		t, err := s.Producer(ctx)
		if err != nil {
			s.tokens <- struct{}{}
			return nil, err
		}
		return t, nil
	default:
	}

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()
	select {
	case t := <-s.pool:
		return t, nil
	case <-s.tokens:
		t, err := s.Producer(ctx)
		if err != nil {
			s.tokens <- struct{}{}
			return nil, err
		}
		return t, nil
	case <-timer.C:
		return nil, cerrors.New(cerrors.KindBeanCreation, s.Type.String(), "timed out waiting for a pooled target")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *PooledTargetSource) ReleaseTarget(_ context.Context, target interface{}) error {
	s.pool <- target
	return nil
}

func (s *PooledTargetSource) IsStatic() bool { return false }

// HotSwappableTargetSource holds a single reference that can be atomically
// replaced at runtime; readers always see a consistent pointer.
type HotSwappableTargetSource struct {
	Type reflect.Type
	ref  atomic.Value
}

func NewHotSwappableTargetSource(t reflect.Type, initial interface{}) *HotSwappableTargetSource {
	s := &HotSwappableTargetSource{Type: t}
	s.ref.Store(&initial)
	return s
}

func (s *HotSwappableTargetSource) TargetType() reflect.Type { return s.Type }

func (s *HotSwappableTargetSource) GetTarget(context.Context) (interface{}, error) {
	return *s.ref.Load().(*interface{}), nil
}

func (s *HotSwappableTargetSource) ReleaseTarget(context.Context, interface{}) error { return nil }
func (s *HotSwappableTargetSource) IsStatic() bool                                   { return false }

// Swap atomically replaces the current target, returning the previous one.
func (s *HotSwappableTargetSource) Swap(next interface{}) interface{} {
	old := *s.ref.Load().(*interface{})
	s.ref.Store(&next)
	return old
}
