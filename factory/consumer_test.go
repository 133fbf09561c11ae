package factory_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/km-arc/go-ioc-container/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_ContainsBeanRecognisesAliasesAndExternalSingletons(t *testing.T) {
	f := newFactory()
	require.NoError(t, f.Registry.Register("engine", constructorDef(registry.ScopeSingleton, newEngine)))
	require.NoError(t, f.Aliases.RegisterAlias("engine", "motor"))
	require.NoError(t, f.Singletons.RegisterSingleton("clock", "external"))

	assert.True(t, f.ContainsBean("engine"))
	assert.True(t, f.ContainsBean("motor"))
	assert.True(t, f.ContainsBean("clock"))
	assert.False(t, f.ContainsBean("nope"))
}

func TestFactory_IsSingletonAndIsPrototypeDoNotTriggerCreation(t *testing.T) {
	f := newFactory()
	require.NoError(t, f.Registry.Register("engine", constructorDef(registry.ScopeSingleton, newEngine)))
	require.NoError(t, f.Registry.Register("car", constructorDef(registry.ScopePrototype, newCar)))
	require.NoError(t, f.Singletons.RegisterSingleton("clock", "external"))

	singleton, err := f.IsSingleton("engine")
	require.NoError(t, err)
	assert.True(t, singleton)

	prototype, err := f.IsPrototype("engine")
	require.NoError(t, err)
	assert.False(t, prototype)

	singleton, err = f.IsSingleton("car")
	require.NoError(t, err)
	assert.False(t, singleton)

	prototype, err = f.IsPrototype("car")
	require.NoError(t, err)
	assert.True(t, prototype)

	singleton, err = f.IsSingleton("clock")
	require.NoError(t, err)
	assert.True(t, singleton)

	_, err = f.IsSingleton("nope")
	assert.Error(t, err)

	// Asking about scope must not have created the engine singleton.
	_, ok := f.Singletons.GetSingleton("engine")
	assert.False(t, ok)
}

func TestFactory_GetTypeAndIsTypeMatch(t *testing.T) {
	f := newFactory()
	require.NoError(t, f.Registry.Register("engine", constructorDef(registry.ScopeSingleton, newEngine)))

	typ, err := f.GetType("engine")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(&Engine{}), typ)

	match, err := f.IsTypeMatch("engine", reflect.TypeOf(&Engine{}))
	require.NoError(t, err)
	assert.True(t, match)

	match, err = f.IsTypeMatch("engine", reflect.TypeOf(&Car{}))
	require.NoError(t, err)
	assert.False(t, match)

	_, ok := f.Singletons.GetSingleton("engine")
	assert.False(t, ok, "GetType/IsTypeMatch must not have created the bean")
}

func TestFactory_BeansOfTypeAndAnnotationLookups(t *testing.T) {
	f := newFactory()
	engineDef := constructorDef(registry.ScopeSingleton, newEngine)
	engineDef.Annotations = []string{"critical"}
	require.NoError(t, f.Registry.Register("engine", engineDef))

	found, err := f.FindAnnotationOnBean("engine", "critical")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = f.FindAnnotationOnBean("engine", "missing")
	require.NoError(t, err)
	assert.False(t, found)

	byAnnotation, err := f.BeansWithAnnotation(context.Background(), "critical")
	require.NoError(t, err)
	assert.Contains(t, byAnnotation, "engine")

	byType, err := f.BeansOfType(context.Background(), reflect.TypeOf(&Engine{}), true)
	require.NoError(t, err)
	assert.Contains(t, byType, "engine")
	assert.IsType(t, &Engine{}, byType["engine"])
}

func TestFactory_GetBeanWithArgsPassesExplicitArguments(t *testing.T) {
	f := newFactory()
	require.NoError(t, f.Registry.Register("car", constructorDef(registry.ScopePrototype, newCar)))

	engine := &Engine{Horsepower: 42}
	bean, err := f.GetBeanWithArgs(context.Background(), "car", engine)
	require.NoError(t, err)
	assert.IsType(t, &Car{}, bean)
	assert.Same(t, engine, bean.(*Car).Engine)
}
