package registry_test

import (
	"reflect"
	"testing"

	"github.com/km-arc/go-ioc-container/cerrors"
	"github.com/km-arc/go-ioc-container/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name string
	Size int
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := registry.NewRegistry()
	def := &registry.BeanDefinition{Type: reflect.TypeOf(widget{})}
	require.NoError(t, r.Register("w1", def))

	got, ok := r.Get("w1")
	require.True(t, ok)
	assert.Equal(t, "w1", got.Name)
}

func TestRegistry_DuplicateApplicationRoleReplaces(t *testing.T) {
	r := registry.NewRegistry()
	first := &registry.BeanDefinition{Type: reflect.TypeOf(widget{})}
	second := &registry.BeanDefinition{Type: reflect.TypeOf(int(0))}
	require.NoError(t, r.Register("w1", first))
	require.NoError(t, r.Register("w1", second))

	got, _ := r.Get("w1")
	assert.Equal(t, reflect.TypeOf(int(0)), got.Type)
}

func TestRegistry_DuplicateInfrastructureRoleRejected(t *testing.T) {
	r := registry.NewRegistry()
	first := &registry.BeanDefinition{Role: registry.RoleInfrastructure}
	second := &registry.BeanDefinition{Role: registry.RoleInfrastructure}
	require.NoError(t, r.Register("infra", first))
	err := r.Register("infra", second)
	require.Error(t, err)
	assert.Equal(t, cerrors.KindNameConflict, cerrors.KindOf(err))
}

func TestRegistry_FrozenRejectsMutation(t *testing.T) {
	r := registry.NewRegistry()
	r.FreezeConfiguration()
	err := r.Register("w1", &registry.BeanDefinition{})
	require.Error(t, err)
	assert.Equal(t, cerrors.KindConfigurationFrozen, cerrors.KindOf(err))
}

func TestRegistry_MergedNoParentClonesDefinition(t *testing.T) {
	r := registry.NewRegistry()
	def := &registry.BeanDefinition{
		Type:           reflect.TypeOf(widget{}),
		PropertyValues: []registry.PropertyValue{{Name: "Name", Value: registry.Literal("base")}},
	}
	require.NoError(t, r.Register("w1", def))

	merged, err := r.Merged("w1")
	require.NoError(t, err)
	assert.NotSame(t, def, merged)
	assert.Equal(t, "base", merged.PropertyValues[0].Value.Literal)
}

func TestRegistry_MergedInheritsAndOverridesFromParent(t *testing.T) {
	r := registry.NewRegistry()
	parent := &registry.BeanDefinition{
		Type: reflect.TypeOf(widget{}),
		PropertyValues: []registry.PropertyValue{
			{Name: "Name", Value: registry.Literal("parent-name")},
			{Name: "Size", Value: registry.Literal(1)},
		},
		DependsOn: []string{"base-dep"},
	}
	child := &registry.BeanDefinition{
		Parent: "parent",
		PropertyValues: []registry.PropertyValue{
			{Name: "Size", Value: registry.Literal(2)},
		},
		DependsOn: []string{"child-dep"},
	}
	require.NoError(t, r.Register("parent", parent))
	require.NoError(t, r.Register("child", child))

	merged, err := r.Merged("child")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(widget{}), merged.Type)

	byName := map[string]interface{}{}
	for _, pv := range merged.PropertyValues {
		byName[pv.Name] = pv.Value.Literal
	}
	assert.Equal(t, "parent-name", byName["Name"])
	assert.Equal(t, 2, byName["Size"])
	assert.ElementsMatch(t, []string{"base-dep", "child-dep"}, merged.DependsOn)
}

func TestRegistry_MergedSelfReferentialParentFails(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("a", &registry.BeanDefinition{Parent: "a"}))
	_, err := r.Merged("a")
	require.Error(t, err)
	assert.Equal(t, cerrors.KindBeanCreation, cerrors.KindOf(err))
}

func TestRegistry_MergedMissingParentFails(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("child", &registry.BeanDefinition{Parent: "ghost"}))
	_, err := r.Merged("child")
	require.Error(t, err)
}

func TestRegistry_NamesByTypeMatchesAssignable(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("w1", &registry.BeanDefinition{Type: reflect.TypeOf(widget{})}))
	require.NoError(t, r.Register("w2", &registry.BeanDefinition{Type: reflect.TypeOf(widget{})}))
	require.NoError(t, r.Register("i1", &registry.BeanDefinition{Type: reflect.TypeOf(0)}))

	names := r.NamesByType(reflect.TypeOf(widget{}), true, false, nil)
	assert.ElementsMatch(t, []string{"w1", "w2"}, names)
}

func TestRegistry_NamesByAnnotation(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("a", &registry.BeanDefinition{Annotations: []string{"primary-service"}}))
	require.NoError(t, r.Register("b", &registry.BeanDefinition{}))

	names := r.NamesByAnnotation("primary-service")
	assert.Equal(t, []string{"a"}, names)
}

func TestRegistry_RemoveInvalidatesMerge(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("a", &registry.BeanDefinition{}))
	require.NoError(t, r.Register("child", &registry.BeanDefinition{Parent: "a"}))
	_, err := r.Merged("child")
	require.NoError(t, err)

	require.NoError(t, r.Remove("a"))
	_, ok := r.Get("a")
	assert.False(t, ok)
	_, err = r.Merged("child")
	assert.Error(t, err)
}
