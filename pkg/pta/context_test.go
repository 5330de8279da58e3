package pta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testElem string

func (e testElem) ContextKey() string { return string(e) }

func TestContextPoolInterning(t *testing.T) {
	pool := NewContextPool()

	empty := pool.Empty()
	assert.Same(t, empty, pool.Empty())
	assert.Equal(t, 0, empty.Len())

	a := pool.Append(empty, testElem("a"), 2)
	assert.Same(t, a, pool.Append(empty, testElem("a"), 2),
		"identical element sequences share one context")
	assert.Equal(t, 1, a.Len())

	ab := pool.Append(a, testElem("b"), 2)
	assert.Equal(t, 2, ab.Len())
	assert.NotSame(t, a, ab)
}

func TestContextPoolLimit(t *testing.T) {
	pool := NewContextPool()

	a := pool.Append(pool.Empty(), testElem("a"), 2)
	ab := pool.Append(a, testElem("b"), 2)
	// Appending past the limit drops the oldest element.
	bc := pool.Append(ab, testElem("c"), 2)
	assert.Equal(t, 2, bc.Len())
	assert.Equal(t, "[b,c]", bc.String())

	// Limit zero always yields the empty context.
	assert.Same(t, pool.Empty(), pool.Append(ab, testElem("c"), 0))
}

func TestContextPoolTruncate(t *testing.T) {
	pool := NewContextPool()

	a := pool.Append(pool.Empty(), testElem("a"), 3)
	ab := pool.Append(a, testElem("b"), 3)
	abc := pool.Append(ab, testElem("c"), 3)

	require.Same(t, abc, pool.Truncate(abc, 3), "within the limit nothing changes")
	bc := pool.Truncate(abc, 2)
	assert.Equal(t, "[b,c]", bc.String())
	assert.Same(t, pool.Empty(), pool.Truncate(abc, 0))

	// Truncation results intern against appended contexts.
	b := pool.Append(pool.Empty(), testElem("b"), 3)
	assert.Same(t, pool.Append(b, testElem("c"), 3), bc)
}
