package server

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Admission bounds the number of connections served at once. Waiters are
// admitted in arrival order.
type Admission struct {
	sem      *semaphore.Weighted
	capacity int
}

func NewAdmission(capacity int) *Admission {
	capacity = max(1, capacity)
	return &Admission{sem: semaphore.NewWeighted(int64(capacity)), capacity: capacity}
}

func (a *Admission) Capacity() int {
	return a.capacity
}

// release returns a func that gives the slot back once, however often it is
// called.
func (a *Admission) release() func() {
	var once sync.Once
	return func() {
		once.Do(func() { a.sem.Release(1) })
	}
}

func (a *Admission) TryAdmit() (func(), bool) {
	if !a.sem.TryAcquire(1) {
		return nil, false
	}

	return a.release(), true
}

// Admit blocks until a slot frees or ctx is done.
func (a *Admission) Admit(ctx context.Context) (func(), error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	return a.release(), nil
}
