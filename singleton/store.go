// Package singleton implements the singleton lifecycle and dependency
// graph: the authoritative cache for shared instances, the early-exposure
// mechanism that breaks circular singleton references, the
// dependency/containment edge sets, and dependency-aware destruction.
//
// The per-thread active-creation set is plumbed explicitly through
// context.Context rather than kept in a goroutine-local or package-level
// mutable — a value is added to a fresh child context for every recursive
// creation, never mutated in place, so two independent creation call
// chains never see each other's markers even if they happen to run on the
// same goroutine at different times.
package singleton

import (
	"context"
	"sync"

	"github.com/jrivets/log4g"
	"github.com/km-arc/go-ioc-container/cerrors"
)

var logger = log4g.GetLogger("singleton")

// DisposalFunc runs a bean's shutdown logic. Errors are logged and
// swallowed by the store, never propagated.
type DisposalFunc func() error

// Disposable is the standard disposal capability: any runtime type
// implementing it is enrolled for destruction automatically even without
// an explicit destroy-method on its definition.
type Disposable interface {
	Destroy() error
}

type chainKeyT struct{}

var chainKey = chainKeyT{}

// chainFromContext returns the set of names currently under construction
// on this logical call chain.
func chainFromContext(ctx context.Context) map[string]bool {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(chainKey).(map[string]bool); ok {
		return v
	}
	return nil
}

// WithChainName returns a context recording that name is now under
// construction on this call chain, without mutating the parent context's
// set (so sibling branches never observe each other's markers).
func WithChainName(ctx context.Context, name string) context.Context {
	old := chainFromContext(ctx)
	next := make(map[string]bool, len(old)+1)
	for k := range old {
		next[k] = true
	}
	next[name] = true
	return context.WithValue(ctx, chainKey, next)
}

// InChain reports whether name is already under construction on ctx's call
// chain — i.e. this same logical "thread" asking for its own in-progress
// dependency again.
func InChain(ctx context.Context, name string) bool {
	return chainFromContext(ctx)[name]
}

// Store is the singleton cache and dependency graph.
type Store struct {
	mu sync.RWMutex

	ready          map[string]interface{}
	earlyObjects   map[string]interface{}
	earlyFactories map[string]func() (interface{}, error)
	creatingGlobal map[string]bool

	dependsOn  map[string]map[string]bool
	dependents map[string]map[string]bool
	contained  map[string]map[string]bool

	disposables       map[string]DisposalFunc
	registrationOrder []string
	destroyed         map[string]bool
	closed            bool

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewStore creates an empty SingletonStore.
func NewStore() *Store {
	return &Store{
		ready:          make(map[string]interface{}),
		earlyObjects:   make(map[string]interface{}),
		earlyFactories: make(map[string]func() (interface{}, error)),
		creatingGlobal: make(map[string]bool),
		dependsOn:      make(map[string]map[string]bool),
		dependents:     make(map[string]map[string]bool),
		contained:      make(map[string]map[string]bool),
		disposables:    make(map[string]DisposalFunc),
		destroyed:      make(map[string]bool),
		locks:          make(map[string]*sync.Mutex),
	}
}

func (s *Store) creationLock(name string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close begins the one-way shutdown transition: after this,
// GetOrCreateSingleton fails with ContainerClosed for every name, including
// names that already have a ready instance.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// GetSingleton returns the ready instance if present, else the
// early-exposed object if name is currently being created (in any
// goroutine) and an early factory or object has been registered for it.
func (s *Store) GetSingleton(name string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSingletonLocked(name)
}

func (s *Store) getSingletonLocked(name string) (interface{}, bool) {
	if v, ok := s.ready[name]; ok {
		return v, true
	}
	if !s.creatingGlobal[name] {
		return nil, false
	}
	if v, ok := s.earlyObjects[name]; ok {
		return v, true
	}
	if factory, ok := s.earlyFactories[name]; ok {
		delete(s.earlyFactories, name)
		obj, err := factory()
		if err != nil {
			logger.Warn("early singleton factory for ", name, " failed: ", err)
			return nil, false
		}
		s.earlyObjects[name] = obj
		return obj, true
	}
	return nil, false
}

// AddEarlySingletonFactory registers a zero-arg producer usable while name
// is in the "creating" state, for circular-reference resolution. Must be
// called from within name's own producer.
func (s *Store) AddEarlySingletonFactory(name string, factory func() (interface{}, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ready := s.ready[name]; ready {
		return
	}
	s.earlyFactories[name] = factory
	delete(s.earlyObjects, name)
}

// RegisterSingleton externally injects a pre-built instance. Fails with
// NameConflict if name already has a ready instance.
func (s *Store) RegisterSingleton(name string, obj interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ready[name]; ok {
		return cerrors.New(cerrors.KindNameConflict, name, "singleton already registered")
	}
	s.ready[name] = obj
	s.registrationOrder = append(s.registrationOrder, name)
	return nil
}

// RegisterDisposable enrolls name's disposal callback, invoked once during
// destruction.
func (s *Store) RegisterDisposable(name string, fn DisposalFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposables[name] = fn
}

// RegisterDependency records that dependent's construction/destruction
// ordering depends on dependedOn: dependedOn must be ready before dependent
// is built, and dependent must be destroyed before dependedOn.
func (s *Store) RegisterDependency(dependent, dependedOn string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dependsOn[dependent] == nil {
		s.dependsOn[dependent] = make(map[string]bool)
	}
	s.dependsOn[dependent][dependedOn] = true
	if s.dependents[dependedOn] == nil {
		s.dependents[dependedOn] = make(map[string]bool)
	}
	s.dependents[dependedOn][dependent] = true
}

// DependsOn reports whether dependent is recorded as depending on
// dependedOn, directly.
func (s *Store) DependsOn(dependent, dependedOn string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dependsOn[dependent][dependedOn]
}

// RegisterContained records that inner was created as a nested bean of
// outer, and also registers the destruction-ordering edge so outer is
// destroyed before inner.
func (s *Store) RegisterContained(outer, inner string) {
	s.mu.Lock()
	if s.contained[outer] == nil {
		s.contained[outer] = make(map[string]bool)
	}
	s.contained[outer][inner] = true
	s.mu.Unlock()

	s.RegisterDependency(outer, inner)
}

// GetOrCreateSingleton returns the ready instance for name, creating it
// with producer if absent. producer receives a context carrying this call
// chain's active-creation set, so recursive GetOrCreateSingleton calls it
// makes can detect re-entrance.
func (s *Store) GetOrCreateSingleton(ctx context.Context, name string, producer func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, cerrors.New(cerrors.KindContainerClosed, name, "container is shutting down")
	}

	if v, ok := s.readySnapshot(name); ok {
		return v, nil
	}

	if InChain(ctx, name) {
		// Same logical call chain re-entering: only an early reference
		// can resolve this without failing.
		if v, ok := s.GetSingleton(name); ok {
			return v, nil
		}
		return nil, cerrors.New(cerrors.KindCircularCreation, name,
			"circular singleton creation and no early reference is available")
	}

	lock := s.creationLock(name)
	lock.Lock()
	defer lock.Unlock()

	if v, ok := s.readySnapshot(name); ok {
		return v, nil
	}

	s.markCreating(name)
	defer s.unmarkCreating(name)

	childCtx := WithChainName(ctx, name)
	obj, err := producer(childCtx)
	if err != nil {
		s.purge(name)
		return nil, err
	}

	s.mu.Lock()
	if early, ok := s.earlyObjects[name]; ok && early != obj {
		s.mu.Unlock()
		s.purge(name)
		return nil, cerrors.New(cerrors.KindInconsistentEarlyReference, name,
			"final object is not identical to the early-exposed reference")
	}
	s.ready[name] = obj
	delete(s.earlyObjects, name)
	delete(s.earlyFactories, name)
	s.registrationOrder = append(s.registrationOrder, name)
	s.mu.Unlock()

	return obj, nil
}

func (s *Store) readySnapshot(name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.ready[name]
	return v, ok
}

func (s *Store) markCreating(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creatingGlobal[name] = true
}

func (s *Store) unmarkCreating(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creatingGlobal, name)
}

// purge removes all partial state for a failed creation attempt.
func (s *Store) purge(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.earlyObjects, name)
	delete(s.earlyFactories, name)
	delete(s.creatingGlobal, name)
}

// IsCreating reports whether name is currently being created by anyone.
func (s *Store) IsCreating(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creatingGlobal[name]
}

// DestroySingleton tears down name and everything in dependents[name].
// Safe to call more than once; later calls are no-ops.
func (s *Store) DestroySingleton(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyLocked(name)
}

func (s *Store) destroyLocked(name string) {
	if s.destroyed[name] {
		return
	}
	s.destroyed[name] = true

	for dep := range copySet(s.dependents[name]) {
		s.destroyLocked(dep)
	}

	if fn, ok := s.disposables[name]; ok {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic destroying ", name, ": ", r)
				}
			}()
			if err := fn(); err != nil {
				logger.Error("error destroying ", name, ": ", err)
			}
		}()
	}

	for child := range copySet(s.contained[name]) {
		s.destroyLocked(child)
	}

	for other := range s.dependents {
		delete(s.dependents[other], name)
	}
	delete(s.ready, name)
	delete(s.earlyObjects, name)
	delete(s.earlyFactories, name)
	delete(s.disposables, name)
}

// DestroyAll closes the store, then tears down every registered singleton
// in dependency-aware reverse-registration order.
func (s *Store) DestroyAll() {
	s.mu.Lock()
	order := append([]string(nil), s.registrationOrder...)
	s.closed = true
	s.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		s.DestroySingleton(order[i])
	}

	s.mu.Lock()
	s.registrationOrder = nil
	s.mu.Unlock()
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
