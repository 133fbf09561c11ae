package factory_test

import (
	"context"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/km-arc/go-ioc-container/cerrors"
	"github.com/km-arc/go-ioc-container/factory"
	"github.com/km-arc/go-ioc-container/registry"
	"github.com/km-arc/go-ioc-container/singleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Engine struct {
	Horsepower int
}

type Car struct {
	Engine *Engine
	Color  string
}

func newEngine() *Engine    { return &Engine{Horsepower: 300} }
func newCar(e *Engine) *Car { return &Car{Engine: e} }

func newFactory() *factory.Factory {
	reg := registry.NewRegistry()
	aliases := registry.NewAliasRegistry()
	store := singleton.NewStore()
	return factory.New(reg, aliases, store)
}

func constructorDef(scope registry.Scope, fn interface{}) *registry.BeanDefinition {
	return &registry.BeanDefinition{
		Type:         reflect.TypeOf(fn).Out(0),
		Scope:        scope,
		Constructors: []registry.Constructor{{Fn: reflect.ValueOf(fn)}},
	}
}

func TestFactory_SingletonIsSharedAcrossGetBean(t *testing.T) {
	f := newFactory()
	require.NoError(t, f.Registry.Register("engine", constructorDef(registry.ScopeSingleton, newEngine)))

	a, err := f.GetBean(context.Background(), "engine")
	require.NoError(t, err)
	b, err := f.GetBean(context.Background(), "engine")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestFactory_PrototypeCreatesNewInstanceEachTime(t *testing.T) {
	f := newFactory()
	require.NoError(t, f.Registry.Register("engine", constructorDef(registry.ScopePrototype, newEngine)))

	a, err := f.GetBean(context.Background(), "engine")
	require.NoError(t, err)
	b, err := f.GetBean(context.Background(), "engine")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestFactory_ConstructorAutowiredByType(t *testing.T) {
	f := newFactory()
	require.NoError(t, f.Registry.Register("engine", constructorDef(registry.ScopeSingleton, newEngine)))
	require.NoError(t, f.Registry.Register("car", constructorDef(registry.ScopeSingleton, newCar)))

	bean, err := f.GetBean(context.Background(), "car")
	require.NoError(t, err)
	car := bean.(*Car)
	require.NotNil(t, car.Engine)
	assert.Equal(t, 300, car.Engine.Horsepower)
}

func TestFactory_AliasResolvesToCanonical(t *testing.T) {
	f := newFactory()
	require.NoError(t, f.Registry.Register("engine", constructorDef(registry.ScopeSingleton, newEngine)))
	require.NoError(t, f.Aliases.RegisterAlias("engine", "motor"))

	byAlias, err := f.GetBean(context.Background(), "motor")
	require.NoError(t, err)
	byCanonical, err := f.GetBean(context.Background(), "engine")
	require.NoError(t, err)
	assert.Same(t, byAlias, byCanonical)
}

func TestFactory_PropertyValuesArePopulated(t *testing.T) {
	f := newFactory()
	def := constructorDef(registry.ScopeSingleton, func() *Car { return &Car{} })
	def.PropertyValues = []registry.PropertyValue{{Name: "Color", Value: registry.Literal("red")}}
	require.NoError(t, f.Registry.Register("car", def))

	bean, err := f.GetBean(context.Background(), "car")
	require.NoError(t, err)
	assert.Equal(t, "red", bean.(*Car).Color)
}

func TestFactory_PropertyPlaceholderExpansion(t *testing.T) {
	f := newFactory()
	f.Lookup = func(key string) (string, bool) {
		if key == "car.color" {
			return "blue", true
		}
		return "", false
	}
	def := constructorDef(registry.ScopeSingleton, func() *Car { return &Car{} })
	def.PropertyValues = []registry.PropertyValue{{Name: "Color", Value: registry.Literal("${car.color}")}}
	require.NoError(t, f.Registry.Register("car", def))

	bean, err := f.GetBean(context.Background(), "car")
	require.NoError(t, err)
	assert.Equal(t, "blue", bean.(*Car).Color)
}

func TestFactory_NoSuchBeanFails(t *testing.T) {
	f := newFactory()
	_, err := f.GetBean(context.Background(), "ghost")
	require.Error(t, err)
}

type initTrackingBean struct {
	Initialized bool
}

func (b *initTrackingBean) Warm() { b.Initialized = true }

func TestFactory_InitMethodInvoked(t *testing.T) {
	f := newFactory()
	def := constructorDef(registry.ScopeSingleton, func() *initTrackingBean { return &initTrackingBean{} })
	def.InitMethod = "Warm"
	require.NoError(t, f.Registry.Register("b", def))

	bean, err := f.GetBean(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, bean.(*initTrackingBean).Initialized)
}

type disposableBean struct {
	destroyed *bool
}

func (b *disposableBean) Destroy() error {
	*b.destroyed = true
	return nil
}

func TestFactory_DisposableDestroyedOnShutdown(t *testing.T) {
	f := newFactory()
	destroyed := false
	def := constructorDef(registry.ScopeSingleton, func() *disposableBean {
		return &disposableBean{destroyed: &destroyed}
	})
	require.NoError(t, f.Registry.Register("b", def))

	_, err := f.GetBean(context.Background(), "b")
	require.NoError(t, err)

	f.Singletons.DestroyAll()
	assert.True(t, destroyed)
}

type nameAwareBean struct {
	Name string
}

func (b *nameAwareBean) SetBeanName(name string) { b.Name = name }

func TestFactory_BeanNameAwareCallback(t *testing.T) {
	f := newFactory()
	def := constructorDef(registry.ScopeSingleton, func() *nameAwareBean { return &nameAwareBean{} })
	require.NoError(t, f.Registry.Register("aware", def))

	bean, err := f.GetBean(context.Background(), "aware")
	require.NoError(t, err)
	assert.Equal(t, "aware", bean.(*nameAwareBean).Name)
}

type upperCasePostProcessor struct{}

func (upperCasePostProcessor) BeforeInitialization(name string, bean interface{}) (interface{}, error) {
	return bean, nil
}

func (upperCasePostProcessor) AfterInitialization(name string, bean interface{}) (interface{}, error) {
	if car, ok := bean.(*Car); ok {
		car.Color = car.Color + "!"
	}
	return bean, nil
}

func TestFactory_PostProcessorAppliedAfterInitialization(t *testing.T) {
	f := newFactory()
	f.AddPostProcessor(upperCasePostProcessor{})
	def := constructorDef(registry.ScopeSingleton, func() *Car { return &Car{Color: "red"} })
	require.NoError(t, f.Registry.Register("car", def))

	bean, err := f.GetBean(context.Background(), "car")
	require.NoError(t, err)
	assert.Equal(t, "red!", bean.(*Car).Color)
}

type Battery struct{}
type FuelTank struct{}

func newCarFromBattery(b *Battery) *Car { return &Car{} }
func newCarFromFuel(f *FuelTank) *Car   { return &Car{} }

func TestFactory_AmbiguousConstructorCarriesRejectedCandidatesAsSuppressed(t *testing.T) {
	f := newFactory()
	def := &registry.BeanDefinition{
		Type:  reflect.TypeOf(&Car{}),
		Scope: registry.ScopeSingleton,
		Constructors: []registry.Constructor{
			{Fn: reflect.ValueOf(newCarFromBattery)},
			{Fn: reflect.ValueOf(newCarFromFuel)},
		},
	}
	require.NoError(t, f.Registry.Register("car", def))

	_, err := f.GetBean(context.Background(), "car")
	require.Error(t, err)

	ambiguous := findCause(err, cerrors.KindAmbiguousConstructor)
	require.NotNil(t, ambiguous, "expected an AmbiguousConstructor cause somewhere in the chain")
	assert.Len(t, ambiguous.Suppressed(), 2)
}

func findCause(err error, kind cerrors.Kind) *cerrors.Error {
	for err != nil {
		if ce, ok := err.(*cerrors.Error); ok && ce.Kind == kind {
			return ce
		}
		err = stderrors.Unwrap(err)
	}
	return nil
}
