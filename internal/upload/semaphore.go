package upload

import (
	"container/list"
	"context"
	"sync"
)

// Semaphore is a counting semaphore whose waiters are served in arrival order.
//
// A released permit is handed directly to the oldest waiter, so a late arrival can never
// overtake a queued acquirer.
type Semaphore struct {
	mu      sync.Mutex
	size    int
	permits int
	waiters list.List
}

// NewSemaphore returns a semaphore with n permits. n below one is treated as one.
func NewSemaphore(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	return &Semaphore{size: n, permits: n}
}

// Acquire blocks until a permit is available or ctx is done.
// The returned release func may be called more than once; only the first call frees the permit.
func (s *Semaphore) Acquire(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.permits > 0 && s.waiters.Len() == 0 {
		s.permits--
		s.mu.Unlock()
		return s.releaser(), nil
	}

	ready := make(chan struct{})
	elem := s.waiters.PushBack(ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return s.releaser(), nil
	case <-ctx.Done():
		s.mu.Lock()
		select {
		case <-ready:
			// handed a permit while giving up
			s.mu.Unlock()
			s.release()
		default:
			s.waiters.Remove(elem)
			s.mu.Unlock()
		}
		return nil, ctx.Err()
	}
}

// TryAcquire takes a permit without blocking.
func (s *Semaphore) TryAcquire() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits == 0 || s.waiters.Len() > 0 {
		return nil, false
	}
	s.permits--
	return s.releaser(), true
}

// Available returns the number of free permits.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}

// Waiting returns the number of queued acquirers.
func (s *Semaphore) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

// Size returns the total number of permits.
func (s *Semaphore) Size() int { return s.size }

func (s *Semaphore) releaser() func() {
	var once sync.Once
	return func() { once.Do(s.release) }
}

func (s *Semaphore) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if front := s.waiters.Front(); front != nil {
		s.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	s.permits++
}
