// Package factory implements the resolver/factory: the getBean state
// machine, constructor and factory-method selection, dependency
// resolution, lifecycle callback sequencing, factory-bean dereferencing,
// and autowiring.
//
// It is the orchestration layer sitting on top of registry and singleton:
// the Factory type owns no storage of its own beyond post-processors and
// custom scope handlers, delegating everything else to those two
// packages.
package factory

import (
	"context"
	"reflect"
	"sync"

	"github.com/jrivets/log4g"
	"github.com/km-arc/go-ioc-container/cerrors"
	"github.com/km-arc/go-ioc-container/placeholder"
	"github.com/km-arc/go-ioc-container/registry"
	"github.com/km-arc/go-ioc-container/singleton"
)

var logger = log4g.GetLogger("factory")

// BeanNameAware is implemented by beans that want to know their own
// canonical registered name.
type BeanNameAware interface {
	SetBeanName(name string)
}

// FactoryAware is implemented by beans that need a handle back onto the
// owning Factory, e.g. to look up collaborators lazily.
type FactoryAware interface {
	SetBeanFactory(f *Factory)
}

// PostProcessor hooks into every bean's initialisation sequence. Either
// method may return a replacement object; returning the bean unchanged is
// the common case.
type PostProcessor interface {
	BeforeInitialization(name string, bean interface{}) (interface{}, error)
	AfterInitialization(name string, bean interface{}) (interface{}, error)
}

// FactoryBeanObject is the contract a produced object may satisfy to
// indicate it is itself a producer of the "real" bean, mirroring Spring's
// FactoryBean.
type FactoryBeanObject interface {
	GetObject() (interface{}, error)
	GetObjectType() reflect.Type
	IsFactoryBeanSingleton() bool
}

// Disposable mirrors singleton.Disposable; re-exported here so callers of
// this package don't need to import singleton just to implement it.
type Disposable = singleton.Disposable

// ScopeHandler implements a custom (non-singleton, non-prototype) scope:
// its own get/put cache keyed by bean name.
type ScopeHandler interface {
	Get(ctx context.Context, name string, producer func(ctx context.Context) (interface{}, error)) (interface{}, error)
}

type protoChainKeyT struct{}

var protoChainKey = protoChainKeyT{}

func protoChain(ctx context.Context) map[string]bool {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(protoChainKey).(map[string]bool); ok {
		return v
	}
	return nil
}

func withProtoChain(ctx context.Context, name string) context.Context {
	old := protoChain(ctx)
	next := make(map[string]bool, len(old)+1)
	for k := range old {
		next[k] = true
	}
	next[name] = true
	return context.WithValue(ctx, protoChainKey, next)
}

// Factory is the resolver/factory: the single entry point applications use
// to obtain beans.
type Factory struct {
	Registry   *registry.Registry
	Aliases    *registry.AliasRegistry
	Singletons *singleton.Store
	Placehold  *placeholder.Engine

	// Lookup resolves a placeholder key against the environment/properties
	// backing this factory.
	Lookup placeholder.Lookup

	// Parent is consulted when a name is absent from this factory's own
	// registry, for hierarchical containers.
	Parent *Factory

	// AllowCircularReferences enables early singleton exposure. Disabling
	// it turns circular singleton graphs into a CircularCreation failure
	// instead of being silently resolved.
	AllowCircularReferences bool

	mu             sync.RWMutex
	postProcessors []PostProcessor
	scopes         map[registry.Scope]ScopeHandler
}

// New creates a Factory over the given registry, alias table and singleton
// store. Placehold is set to placeholder.New().
func New(reg *registry.Registry, aliases *registry.AliasRegistry, singletons *singleton.Store) *Factory {
	return &Factory{
		Registry:                reg,
		Aliases:                 aliases,
		Singletons:              singletons,
		Placehold:               placeholder.New(),
		AllowCircularReferences: true,
		scopes:                  make(map[registry.Scope]ScopeHandler),
	}
}

// AddPostProcessor registers a PostProcessor, applied to every bean created
// after this call in registration order.
func (f *Factory) AddPostProcessor(p PostProcessor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postProcessors = append(f.postProcessors, p)
}

// RegisterScope installs a ScopeHandler for a custom scope name.
func (f *Factory) RegisterScope(name registry.Scope, handler ScopeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes[name] = handler
}

func (f *Factory) postProcessorsSnapshot() []PostProcessor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]PostProcessor, len(f.postProcessors))
	copy(out, f.postProcessors)
	return out
}

func (f *Factory) scopeHandler(name registry.Scope) (ScopeHandler, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	h, ok := f.scopes[name]
	return h, ok
}

// GetBean resolves name to an instance.
func (f *Factory) GetBean(ctx context.Context, name string) (interface{}, error) {
	return f.getBean(ctx, name, nil)
}

// GetBeanOfType resolves the single autowire candidate assignable to t,
// failing NoUniqueBean if more than one primary-less candidate remains.
func (f *Factory) GetBeanOfType(ctx context.Context, t reflect.Type) (interface{}, error) {
	names := f.Registry.NamesByType(t, true, false, f.resolveFactoryBeanType)
	names = f.filterAutowireCandidates(names)
	switch len(names) {
	case 0:
		return nil, cerrors.New(cerrors.KindNoSuchBean, t.String(), "no bean of the requested type")
	case 1:
		return f.GetBean(ctx, names[0])
	default:
		if primary, ok := f.pickPrimary(names); ok {
			return f.GetBean(ctx, primary)
		}
		return nil, cerrors.New(cerrors.KindNoUniqueBean, t.String(), "more than one candidate bean and none is primary")
	}
}

// getBean is the internal, dereference-prefix-aware resolver; wantFactory
// forces returning the FactoryBeanObject itself rather than its product.
func (f *Factory) getBean(ctx context.Context, name string, explicitArgs []interface{}) (interface{}, error) {
	wantFactory := false
	if len(name) > 0 && name[0] == '&' {
		wantFactory = true
		name = name[1:]
	}
	canonical := f.Aliases.CanonicalName(name)

	if explicitArgs == nil {
		if v, ok := f.Singletons.GetSingleton(canonical); ok {
			return f.dereferenceFactoryBean(canonical, v, wantFactory)
		}
	}

	def, err := f.Registry.Merged(canonical)
	if err != nil {
		if f.Parent != nil {
			if v, perr := f.Parent.getBean(ctx, name, explicitArgs); perr == nil {
				return v, nil
			}
		}
		return nil, err
	}

	if def.IsPrototype() {
		if protoChain(ctx)[canonical] {
			return nil, cerrors.New(cerrors.KindCircularPrototype, canonical,
				"prototype bean is already being created on this call chain")
		}
	}

	if err := f.resolveDependsOn(ctx, canonical, def.DependsOn); err != nil {
		return nil, err
	}

	producer := func(ctx context.Context) (interface{}, error) {
		return f.createBean(ctx, canonical, def, explicitArgs)
	}

	var obj interface{}
	switch {
	case def.IsSingleton():
		obj, err = f.Singletons.GetOrCreateSingleton(ctx, canonical, producer)
	case def.IsPrototype():
		obj, err = producer(withProtoChain(ctx, canonical))
	default:
		handler, ok := f.scopeHandler(def.Scope)
		if !ok {
			return nil, cerrors.New(cerrors.KindBeanCreation, canonical, "no scope handler registered for scope "+string(def.Scope))
		}
		obj, err = handler.Get(ctx, canonical, producer)
	}
	if err != nil {
		return nil, err
	}

	return f.dereferenceFactoryBean(canonical, obj, wantFactory)
}

func (f *Factory) resolveDependsOn(ctx context.Context, dependent string, deps []string) error {
	for _, dep := range deps {
		if _, err := f.getBean(ctx, dep, nil); err != nil {
			return cerrors.Wrap(cerrors.KindUnresolvableDependency, dependent, err, "resolving depends-on %q", dep)
		}
		f.Singletons.RegisterDependency(dependent, f.Aliases.CanonicalName(dep))
	}
	return nil
}

func (f *Factory) dereferenceFactoryBean(name string, obj interface{}, wantFactory bool) (interface{}, error) {
	fb, ok := obj.(FactoryBeanObject)
	if !ok || wantFactory {
		return obj, nil
	}
	product, err := fb.GetObject()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindBeanCreation, name, err, "factory bean getObject")
	}
	return product, nil
}

// createBean runs the producer state machine: select+invoke
// constructor/factory method, expose early, populate properties, run the
// init sequence.
func (f *Factory) createBean(ctx context.Context, name string, def *registry.BeanDefinition, explicitArgs []interface{}) (obj interface{}, err error) {
	logger.Debug("creating bean ", name)

	raw, err := f.instantiate(ctx, name, def, explicitArgs)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindBeanCreation, name, err, "instantiating")
	}

	if def.IsSingleton() && f.AllowCircularReferences {
		early := raw
		f.Singletons.AddEarlySingletonFactory(name, func() (interface{}, error) {
			return early, nil
		})
	}

	if err := f.populateProperties(ctx, name, def, raw); err != nil {
		return nil, cerrors.Wrap(cerrors.KindBeanCreation, name, err, "populating properties")
	}

	final, err := f.runInitSequence(name, raw)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindBeanCreation, name, err, "initializing")
	}

	return final, nil
}

func (f *Factory) runInitSequence(name string, raw interface{}) (interface{}, error) {
	if aware, ok := raw.(BeanNameAware); ok {
		aware.SetBeanName(name)
	}
	if aware, ok := raw.(FactoryAware); ok {
		aware.SetBeanFactory(f)
	}

	current := raw
	for _, pp := range f.postProcessorsSnapshot() {
		next, err := pp.BeforeInitialization(name, current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
	}

	if def, ok := f.Registry.Get(name); ok && def != nil {
		if merged, mErr := f.Registry.Merged(name); mErr == nil && merged.InitMethod != "" {
			if err := invokeNoArgMethod(current, merged.InitMethod); err != nil {
				return nil, err
			}
		}
	}
	if initable, ok := current.(interface{ AfterPropertiesSet() error }); ok {
		if err := initable.AfterPropertiesSet(); err != nil {
			return nil, err
		}
	}

	for _, pp := range f.postProcessorsSnapshot() {
		next, err := pp.AfterInitialization(name, current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
	}

	if disposable, ok := current.(Disposable); ok {
		f.Singletons.RegisterDisposable(name, disposable.Destroy)
	}
	if merged, mErr := f.Registry.Merged(name); mErr == nil && merged.DestroyMethod != "" {
		method := merged.DestroyMethod
		bean := current
		f.Singletons.RegisterDisposable(name, func() error {
			return invokeNoArgMethod(bean, method)
		})
	}

	return current, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func invokeNoArgMethod(bean interface{}, methodName string) error {
	v := reflect.ValueOf(bean)
	m := v.MethodByName(methodName)
	if !m.IsValid() {
		return cerrors.New(cerrors.KindBeanCreation, methodName, "no such method: "+methodName)
	}
	results := m.Call(nil)
	if len(results) != 1 || !results[0].Type().Implements(errorType) {
		return nil
	}
	rv := results[0]
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		if rv.IsNil() {
			return nil
		}
	}
	err, _ := rv.Interface().(error)
	return err
}

func (f *Factory) resolveFactoryBeanType(def *registry.BeanDefinition, allowEagerInit bool) (reflect.Type, bool) {
	if !allowEagerInit || def.Factory == nil {
		return nil, false
	}
	obj, err := f.GetBean(context.Background(), "&"+def.Name)
	if err != nil {
		return nil, false
	}
	fb, ok := obj.(FactoryBeanObject)
	if !ok {
		return reflect.TypeOf(obj), true
	}
	t := fb.GetObjectType()
	if t == nil {
		return nil, false
	}
	return t, true
}

func (f *Factory) filterAutowireCandidates(names []string) []string {
	var out []string
	for _, n := range names {
		def, ok := f.Registry.Get(n)
		if !ok || !def.NotAutowireCandidate {
			out = append(out, n)
		}
	}
	return out
}

func (f *Factory) pickPrimary(names []string) (string, bool) {
	var primary string
	count := 0
	for _, n := range names {
		if def, ok := f.Registry.Get(n); ok && def.Primary {
			primary = n
			count++
		}
	}
	if count == 1 {
		return primary, true
	}
	return "", false
}
