package admission

import (
	"container/heap"
	"sync"
	"time"
)

// Class 请求优先级分类，数值越小优先级越高
type Class int

const (
	ClassPremium Class = iota
	ClassHealth
	ClassStreaming
	ClassDefault
)

func (c Class) String() string {
	switch c {
	case ClassPremium:
		return "premium"
	case ClassHealth:
		return "health"
	case ClassStreaming:
		return "streaming"
	default:
		return "default"
	}
}

// waiter 排队中的请求；dispatch 关闭 ready 放行
type waiter struct {
	class      Class
	seq        uint64
	enqueuedAt time.Time
	ready      chan struct{}
	index      int
}

// waiterHeap 实现 container/heap：先按优先级、同级按入队顺序
type waiterHeap []*waiter

func (h waiterHeap) Len() int { return len(h) }

func (h waiterHeap) Less(i, j int) bool {
	if h[i].class != h[j].class {
		return h[i].class < h[j].class
	}
	return h[i].seq < h[j].seq
}

func (h waiterHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waiterHeap) Push(x any) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *waiterHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*h = old[:n-1]
	return w
}

// priorityQueue 有界并发优先级队列。
// 多生产者入队，单消费者（controller 的 dispatch 循环）出队。
type priorityQueue struct {
	mu      sync.Mutex
	heap    waiterHeap
	maxSize int
	nextSeq uint64
}

func newPriorityQueue(maxSize int) *priorityQueue {
	if maxSize <= 0 {
		maxSize = 100
	}
	q := &priorityQueue{maxSize: maxSize}
	heap.Init(&q.heap)
	return q
}

// enqueue 入队；队列已满返回 nil 和失败标志
func (q *priorityQueue) enqueue(class Class) (*waiter, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) >= q.maxSize {
		return nil, 0, false
	}
	q.nextSeq++
	w := &waiter{
		class:      class,
		seq:        q.nextSeq,
		enqueuedAt: time.Now(),
		ready:      make(chan struct{}),
	}
	heap.Push(&q.heap, w)
	return w, q.positionLocked(w), true
}

// positionLocked 统计调度顺序中排在 w 之前的等待者数量加一。
// 堆内下标不反映出队顺序，不能直接当排位用。
func (q *priorityQueue) positionLocked(w *waiter) int {
	position := 1
	for _, other := range q.heap {
		if other == w {
			continue
		}
		if other.class < w.class || (other.class == w.class && other.seq < w.seq) {
			position++
		}
	}
	return position
}

// dequeue 弹出最高优先级的等待者
func (q *priorityQueue) dequeue() *waiter {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*waiter)
}

// remove 排队超时后移除等待者；已被弹出时返回 false
func (q *priorityQueue) remove(w *waiter) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if w.index < 0 || w.index >= len(q.heap) || q.heap[w.index] != w {
		return false
	}
	heap.Remove(&q.heap, w.index)
	return true
}

func (q *priorityQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
