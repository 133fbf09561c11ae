package example

import (
	"reflect"

	"github.com/km-arc/go-ioc-container/containercfg"
	"github.com/km-arc/go-ioc-container/factory"
	"github.com/km-arc/go-ioc-container/registry"
	"github.com/km-arc/go-ioc-container/singleton"
)

// Bootstrap builds a fully wired Factory exercising every module of the
// container: the repository/service singleton graph (with a
// placeholder-driven property and an init method), the Scheduler/Worker
// circular pair, a prototype request-scope bean, an alias, and an
// AOP-advised bean layered on top of the plain "greetingService" via a
// constructor definition with an explicit constructor-argument reference.
func Bootstrap() (*factory.Factory, error) {
	cfg := containercfg.Load()

	reg := registry.NewRegistry()
	aliases := registry.NewAliasRegistry()
	store := singleton.NewStore()

	f := factory.New(reg, aliases, store)
	f.AllowCircularReferences = cfg.AllowCircularReferences
	// No keys are actually set, so every ${...:default} placeholder falls
	// through to its declared default value.
	f.Lookup = func(key string) (string, bool) { return "", false }

	if err := registerRepository(reg); err != nil {
		return nil, err
	}
	if err := registerService(reg); err != nil {
		return nil, err
	}
	if err := registerAdvisedService(reg); err != nil {
		return nil, err
	}
	if err := registerCircularPair(reg); err != nil {
		return nil, err
	}
	if err := registerRequestScope(reg); err != nil {
		return nil, err
	}

	if err := aliases.RegisterAlias("greetingService", "greeter"); err != nil {
		return nil, err
	}

	reg.FreezeConfiguration()
	return f, nil
}

func registerRepository(reg *registry.Registry) error {
	ctor := reflect.ValueOf(NewInMemoryRepository)
	def := &registry.BeanDefinition{
		Type:         ctor.Type().Out(0),
		Constructors: []registry.Constructor{{Fn: ctor}},
		Scope:        registry.ScopeSingleton,
		PropertyValues: []registry.PropertyValue{
			{Name: "Value", Value: registry.Literal("${greeting.prefix:Hello}")},
		},
	}
	return reg.Register("repository", def)
}

func registerService(reg *registry.Registry) error {
	ctor := reflect.ValueOf(NewService)
	def := &registry.BeanDefinition{
		Type:         ctor.Type().Out(0),
		Constructors: []registry.Constructor{{Fn: ctor, ArgNames: []string{"repo"}}},
		Scope:        registry.ScopeSingleton,
		InitMethod:   "Init",
		DependsOn:    []string{"repository"},
	}
	return reg.Register("greetingService", def)
}

func registerAdvisedService(reg *registry.Registry) error {
	// Wired by explicit ConstructorArgs, not autowiring: both this
	// definition's own product type and "greetingService" implement
	// Greeter, so leaving the target parameter to autowire-by-type would
	// be ambiguous. NotAutowireCandidate keeps the proxy itself out of
	// that candidate pool for the same reason.
	ctor := reflect.ValueOf(newProxiedGreeter)
	def := &registry.BeanDefinition{
		Type:                 ctor.Type().Out(0),
		Constructors:         []registry.Constructor{{Fn: ctor, ArgNames: []string{"target"}}},
		ConstructorArgs:      []registry.ValueHolder{registry.Ref("greetingService")},
		Scope:                registry.ScopeSingleton,
		DependsOn:            []string{"greetingService"},
		NotAutowireCandidate: true,
	}
	return reg.Register("advisedGreetingService", def)
}

func registerCircularPair(reg *registry.Registry) error {
	schedCtor := reflect.ValueOf(NewScheduler)
	workerCtor := reflect.ValueOf(NewWorker)

	sched := &registry.BeanDefinition{
		Type:         schedCtor.Type().Out(0),
		Constructors: []registry.Constructor{{Fn: schedCtor}},
		Scope:        registry.ScopeSingleton,
		PropertyValues: []registry.PropertyValue{
			{Name: "Worker", Value: registry.Ref("worker")},
		},
	}
	if err := reg.Register("scheduler", sched); err != nil {
		return err
	}

	worker := &registry.BeanDefinition{
		Type:         workerCtor.Type().Out(0),
		Constructors: []registry.Constructor{{Fn: workerCtor}},
		Scope:        registry.ScopeSingleton,
		PropertyValues: []registry.PropertyValue{
			{Name: "Scheduler", Value: registry.Ref("scheduler")},
		},
	}
	return reg.Register("worker", worker)
}

func registerRequestScope(reg *registry.Registry) error {
	ctor := reflect.ValueOf(NewRequestScope)
	def := &registry.BeanDefinition{
		Type:         ctor.Type().Out(0),
		Constructors: []registry.Constructor{{Fn: ctor}},
		Scope:        registry.ScopePrototype,
	}
	return reg.Register("requestScope", def)
}
