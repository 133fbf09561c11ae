package registry_test

import (
	"testing"

	"github.com/km-arc/go-ioc-container/cerrors"
	"github.com/km-arc/go-ioc-container/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasRegistry_RegisterAndResolve(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("realBean", "alias1"))
	assert.Equal(t, "realBean", r.CanonicalName("alias1"))
	assert.True(t, r.IsAlias("alias1"))
}

func TestAliasRegistry_CanonicalNamePassesThroughNonAlias(t *testing.T) {
	r := registry.NewAliasRegistry()
	assert.Equal(t, "notAnAlias", r.CanonicalName("notAnAlias"))
}

func TestAliasRegistry_SelfAliasRejected(t *testing.T) {
	r := registry.NewAliasRegistry()
	err := r.RegisterAlias("bean", "bean")
	require.Error(t, err)
	assert.Equal(t, cerrors.KindCircularAlias, cerrors.KindOf(err))
}

func TestAliasRegistry_CycleRejected(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("a", "b"))
	require.NoError(t, r.RegisterAlias("b", "c"))
	err := r.RegisterAlias("c", "a")
	require.Error(t, err)
	assert.Equal(t, cerrors.KindCircularAlias, cerrors.KindOf(err))
}

func TestAliasRegistry_DuplicateDifferentTargetRejected(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("beanA", "alias"))
	err := r.RegisterAlias("beanB", "alias")
	require.Error(t, err)
	assert.Equal(t, cerrors.KindNameConflict, cerrors.KindOf(err))
}

func TestAliasRegistry_DuplicateSameTargetIsIdempotent(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("beanA", "alias"))
	assert.NoError(t, r.RegisterAlias("beanA", "alias"))
}

func TestAliasRegistry_AllowOverriding(t *testing.T) {
	r := registry.NewAliasRegistry()
	r.AllowOverriding = true
	require.NoError(t, r.RegisterAlias("beanA", "alias"))
	require.NoError(t, r.RegisterAlias("beanB", "alias"))
	assert.Equal(t, "beanB", r.CanonicalName("alias"))
}

func TestAliasRegistry_RemoveAlias(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("bean", "alias"))
	require.NoError(t, r.RemoveAlias("alias"))
	assert.False(t, r.IsAlias("alias"))
}

func TestAliasRegistry_RemoveUnknownAliasFails(t *testing.T) {
	r := registry.NewAliasRegistry()
	err := r.RemoveAlias("nope")
	require.Error(t, err)
	assert.Equal(t, cerrors.KindUnknownAlias, cerrors.KindOf(err))
}

func TestAliasRegistry_GetAliasesReturnsTransitiveChain(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("bean", "a1"))
	require.NoError(t, r.RegisterAlias("a1", "a2"))
	aliases := r.GetAliases("bean")
	assert.ElementsMatch(t, []string{"a1", "a2"}, aliases)
}
