package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DispatchByEventName(t *testing.T) {
	r := NewRegistry(nil)
	var got string
	require.NoError(t, r.On("message", func(s string) { got = s }))

	r.Dispatch("message", "hello")
	assert.Equal(t, "hello", got)
}

func TestRegistry_DispatchByTypeName(t *testing.T) {
	r := NewRegistry(nil)
	var got int
	require.NoError(t, r.On("int", func(n int) { got = n }))

	r.Dispatch("message", 42)
	assert.Equal(t, 42, got)
}

func TestRegistry_WildcardFiresForEverything(t *testing.T) {
	r := NewRegistry(nil)
	count := 0
	require.NoError(t, r.On("", func(interface{}) { count++ }))

	r.Dispatch("message", "a")
	r.Dispatch("error", "b")
	assert.Equal(t, 2, count)
}

func TestRegistry_InvocationOrderMatchesRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	var order []int
	require.NoError(t, r.On("x", func(string) { order = append(order, 1) }))
	require.NoError(t, r.On("x", func(string) { order = append(order, 2) }))
	require.NoError(t, r.On("x", func(string) { order = append(order, 3) }))

	r.Dispatch("x", "payload")
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRegistry_PanicIsRecoveredAndDoesNotStopDispatch(t *testing.T) {
	r := NewRegistry(nil)
	second := false
	require.NoError(t, r.On("x", func(string) { panic("boom") }))
	require.NoError(t, r.On("x", func(string) { second = true }))

	assert.NotPanics(t, func() { r.Dispatch("x", "payload") })
	assert.True(t, second)
}

type alwaysResolver struct{ matchKey string }

func (r alwaysResolver) Resolve(matchKey string, _ interface{}) bool {
	return matchKey == r.matchKey
}

func TestRegistry_ResolverClauseMatches(t *testing.T) {
	r := NewRegistry(alwaysResolver{matchKey: "custom"})
	fired := false
	require.NoError(t, r.On("custom", func(string) { fired = true }))

	r.Dispatch("unrelated-event", "payload")
	assert.True(t, fired)
}

func TestRegistry_DispatchReportsWhetherAWrapperRan(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.On("message", func(string) {}))

	assert.True(t, r.Dispatch("message", "hello"))
	assert.False(t, r.Dispatch("unregistered", "hello"))
}

func TestRegistry_OnRejectsNonUnaryFunc(t *testing.T) {
	r := NewRegistry(nil)
	err := r.On("x", func() {})
	assert.Error(t, err)

	err2 := r.On("x", "not a func")
	assert.Error(t, err2)
}
