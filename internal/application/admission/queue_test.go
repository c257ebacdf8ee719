package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePriorityOrdering(t *testing.T) {
	q := newPriorityQueue(10)

	_, _, ok := q.enqueue(ClassDefault)
	require.True(t, ok)
	_, _, ok = q.enqueue(ClassStreaming)
	require.True(t, ok)
	_, _, ok = q.enqueue(ClassPremium)
	require.True(t, ok)
	_, _, ok = q.enqueue(ClassHealth)
	require.True(t, ok)

	got := []Class{
		q.dequeue().class,
		q.dequeue().class,
		q.dequeue().class,
		q.dequeue().class,
	}
	assert.Equal(t, []Class{ClassPremium, ClassHealth, ClassStreaming, ClassDefault}, got)
	assert.Nil(t, q.dequeue())
}

func TestQueueFIFOWithinClass(t *testing.T) {
	q := newPriorityQueue(10)

	first, _, _ := q.enqueue(ClassDefault)
	second, _, _ := q.enqueue(ClassDefault)
	third, _, _ := q.enqueue(ClassDefault)

	assert.Same(t, first, q.dequeue())
	assert.Same(t, second, q.dequeue())
	assert.Same(t, third, q.dequeue())
}

func TestQueuePositionReflectsDispatchOrder(t *testing.T) {
	q := newPriorityQueue(10)

	_, pos, _ := q.enqueue(ClassDefault)
	assert.Equal(t, 1, pos, "lone waiter is next in line")

	_, pos, _ = q.enqueue(ClassDefault)
	assert.Equal(t, 2, pos, "same class queues behind the earlier arrival")

	_, pos, _ = q.enqueue(ClassPremium)
	assert.Equal(t, 1, pos, "premium jumps ahead of both defaults")

	_, pos, _ = q.enqueue(ClassStreaming)
	assert.Equal(t, 2, pos, "streaming sits behind premium, ahead of defaults")

	_, pos, _ = q.enqueue(ClassDefault)
	assert.Equal(t, 5, pos)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := newPriorityQueue(2)

	_, _, ok := q.enqueue(ClassDefault)
	require.True(t, ok)
	_, _, ok = q.enqueue(ClassDefault)
	require.True(t, ok)

	w, _, ok := q.enqueue(ClassPremium)
	assert.False(t, ok, "full queue rejects even premium")
	assert.Nil(t, w)
	assert.Equal(t, 2, q.depth())
}

func TestQueueRemove(t *testing.T) {
	q := newPriorityQueue(10)

	w, _, _ := q.enqueue(ClassDefault)
	other, _, _ := q.enqueue(ClassStreaming)

	assert.True(t, q.remove(w))
	assert.False(t, q.remove(w), "second removal is a no-op")
	assert.Equal(t, 1, q.depth())

	popped := q.dequeue()
	require.Same(t, other, popped)
	assert.False(t, q.remove(popped), "dequeued waiter cannot be removed")
}

func TestQueueClassString(t *testing.T) {
	assert.Equal(t, "premium", ClassPremium.String())
	assert.Equal(t, "default", ClassDefault.String())
	assert.Equal(t, "streaming", ClassStreaming.String())
	assert.Equal(t, "health", ClassHealth.String())
}
