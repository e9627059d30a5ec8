package session

import "sync"

// Sequencer runs submitted functions one at a time per key, in submission order,
// while different keys run concurrently.
type Sequencer struct {
	mu     sync.Mutex
	queues map[int64][]func()
	wg     sync.WaitGroup
}

// NewSequencer constructs an idle Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{queues: make(map[int64][]func())}
}

// Submit queues fn behind every function previously submitted for key.
// It never blocks on fn.
func (s *Sequencer) Submit(key int64, fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, running := s.queues[key]; running {
		s.queues[key] = append(q, fn)
		return
	}
	s.queues[key] = []func(){fn}
	s.wg.Add(1)
	go s.drain(key)
}

func (s *Sequencer) drain(key int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		q := s.queues[key]
		if len(q) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		fn := q[0]
		q[0] = nil
		s.queues[key] = q[1:]
		s.mu.Unlock()

		s.run(fn)
	}
}

// run keeps a panicking job from killing the queue of its key.
func (s *Sequencer) run(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// Active reports how many keys currently have queued or running work.
func (s *Sequencer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

// Wait blocks until every submitted function has finished.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}
