package session

import (
	"context"
	"sync"
	"time"

	"node.town/tandem/snd"
)

// Captured is a segment tagged with the generation of the worker that
// captured it.
type Captured struct {
	Generation uint64
	Segment    *snd.Segment
}

// AudioQueue carries captured segments from capture to recognition in
// capture order.
type AudioQueue struct {
	ch chan Captured
}

func NewAudioQueue(size int) *AudioQueue {
	return &AudioQueue{ch: make(chan Captured, size)}
}

// Put blocks while the queue is full, until ctx is done.
func (q *AudioQueue) Put(ctx context.Context, gen uint64, seg *snd.Segment) error {
	select {
	case q.ch <- Captured{Generation: gen, Segment: seg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get waits up to timeout for a segment.
func (q *AudioQueue) Get(ctx context.Context, timeout time.Duration) (Captured, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case c := <-q.ch:
		return c, true
	case <-t.C:
		return Captured{}, false
	case <-ctx.Done():
		return Captured{}, false
	}
}

func (q *AudioQueue) Len() int {
	return len(q.ch)
}

// Drain discards everything queued and reports how much was dropped.
func (q *AudioQueue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

// Job asks the synthesis stage to speak a finalized translation.
type Job struct {
	Generation uint64
	Text       string
	TargetLang string
}

// JobSlot holds at most one pending job. Offering a job replaces whatever
// was waiting, since stale speech would mislead the listener.
type JobSlot struct {
	mu sync.Mutex
	ch chan Job
}

func NewJobSlot() *JobSlot {
	return &JobSlot{ch: make(chan Job, 1)}
}

// Offer replaces any pending job with job. It reports whether a pending
// job was discarded.
func (s *JobSlot) Offer(job Job) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ch:
		replaced = true
	default:
	}
	s.ch <- job
	return replaced
}

// Take waits up to timeout for a job.
func (s *JobSlot) Take(ctx context.Context, timeout time.Duration) (Job, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case job := <-s.ch:
		return job, true
	case <-t.C:
		return Job{}, false
	case <-ctx.Done():
		return Job{}, false
	}
}

func (s *JobSlot) Len() int {
	return len(s.ch)
}

func (s *JobSlot) Drain() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ch:
		return 1
	default:
		return 0
	}
}
