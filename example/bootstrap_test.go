package example

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_ResolvesGreetingServiceWithDefaultPlaceholder(t *testing.T) {
	f, err := Bootstrap()
	require.NoError(t, err)

	bean, err := f.GetBean(context.Background(), "greetingService")
	require.NoError(t, err)

	svc, ok := bean.(*Service)
	require.True(t, ok)
	assert.Equal(t, "Hello, world!", svc.Greet("world"))
}

func TestBootstrap_AliasResolvesToSameSingleton(t *testing.T) {
	f, err := Bootstrap()
	require.NoError(t, err)

	direct, err := f.GetBean(context.Background(), "greetingService")
	require.NoError(t, err)
	viaAlias, err := f.GetBean(context.Background(), "greeter")
	require.NoError(t, err)

	assert.Same(t, direct, viaAlias)
}

func TestBootstrap_ResolvesCircularSchedulerWorkerPair(t *testing.T) {
	f, err := Bootstrap()
	require.NoError(t, err)

	bean, err := f.GetBean(context.Background(), "scheduler")
	require.NoError(t, err)
	sched := bean.(*Scheduler)
	require.NotNil(t, sched.Worker)
	require.NotNil(t, sched.Worker.Scheduler)
	assert.Same(t, sched, sched.Worker.Scheduler)
}

func TestBootstrap_RequestScopeIsFreshEveryCall(t *testing.T) {
	f, err := Bootstrap()
	require.NoError(t, err)

	a, err := f.GetBean(context.Background(), "requestScope")
	require.NoError(t, err)
	b, err := f.GetBean(context.Background(), "requestScope")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.(*requestScope).ID, b.(*requestScope).ID)
}

func TestBootstrap_AdvisedGreeterDelegatesThroughProxy(t *testing.T) {
	f, err := Bootstrap()
	require.NoError(t, err)

	bean, err := f.GetBean(context.Background(), "advisedGreetingService")
	require.NoError(t, err)

	greeter, ok := bean.(Greeter)
	require.True(t, ok)
	assert.Equal(t, "Hello, world!", greeter.Greet("world"))
}

func TestBootstrap_ConfigurationIsFrozenAfterBootstrap(t *testing.T) {
	f, err := Bootstrap()
	require.NoError(t, err)
	assert.True(t, f.Registry.Frozen())
}
