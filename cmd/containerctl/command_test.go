package main

import (
	"context"
	"testing"

	"github.com/km-arc/go-ioc-container/example"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdmin(t *testing.T) *admin {
	t.Helper()
	f, err := example.Bootstrap()
	require.NoError(t, err)
	return newAdmin(f)
}

func TestExecCmd_BeansListsRegisteredNames(t *testing.T) {
	a := newTestAdmin(t)
	err := execCmd(context.Background(), "beans", a)
	assert.NoError(t, err)
}

func TestExecCmd_DescribeUnknownBeanFails(t *testing.T) {
	a := newTestAdmin(t)
	err := execCmd(context.Background(), "describe nope", a)
	assert.Error(t, err)
}

func TestExecCmd_GetResolvesRegisteredBean(t *testing.T) {
	a := newTestAdmin(t)
	err := execCmd(context.Background(), "get greetingService", a)
	assert.NoError(t, err)
}

func TestExecCmd_SetOverridesPlaceholderLookup(t *testing.T) {
	a := newTestAdmin(t)
	require.NoError(t, execCmd(context.Background(), "set greeting.prefix=Yo", a))

	out, err := a.get(context.Background(), "repository")
	require.NoError(t, err)
	assert.Contains(t, out, "Yo")
}

func TestExecCmd_UnknownCommandFails(t *testing.T) {
	a := newTestAdmin(t)
	err := execCmd(context.Background(), "frobnicate", a)
	assert.Error(t, err)
}

func TestExecCmd_QuitReturnsSentinelError(t *testing.T) {
	a := newTestAdmin(t)
	err := execCmd(context.Background(), "quit", a)
	assert.Equal(t, errQuit, err)
}

func TestExecCmd_InvalidSyntaxForKnownCommandFails(t *testing.T) {
	a := newTestAdmin(t)
	err := execCmd(context.Background(), "describe", a)
	assert.Error(t, err)
}
