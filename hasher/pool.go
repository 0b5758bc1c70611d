// Package hasher implements the bounded worker pool that hashes
// torrent pieces in parallel. Cancellation uses an explicit
// active-job-id compared at the moment a free worker is acquired: a
// superseded job is skipped without hashing, while a worker already
// executing runs to completion and only its result is dropped.
package hasher

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/yotomir/torrent-creator/digest"
)

// MaxWorkers bounds the pool regardless of machine size.
const MaxWorkers = 8

// Pool owns up to MaxWorkers hasher instances and dispatches hashing
// jobs to them in FIFO order.
type Pool struct {
	tokens      chan struct{} // one token per free worker; FIFO by channel semantics
	activeJobID atomic.Int64
	hashers     sync.Pool
}

// NewPool creates a pool with min(n, MaxWorkers) workers. n <= 0 is
// treated as 1.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}

	p := &Pool{
		tokens: make(chan struct{}, n),
		hashers: sync.Pool{
			New: func() any { return digest.New() },
		},
	}
	for i := 0; i < n; i++ {
		p.tokens <- struct{}{}
	}
	return p
}

// Workers reports the pool's worker count.
func (p *Pool) Workers() int {
	return cap(p.tokens)
}

// SetActiveJobID atomically updates the pool's active job id. In-flight
// workers are not interrupted; their results are simply discarded by the
// caller (the pipeline) once it observes the mismatch.
func (p *Pool) SetActiveJobID(id int64) {
	p.activeJobID.Store(id)
}

// ActiveJobID returns the pool's current active job id.
func (p *Pool) ActiveJobID() int64 {
	return p.activeJobID.Load()
}

// ComputeHashes hashes each input independently and in order,
// returning a concatenation of digest.Size-byte digests plus the
// original input buffers for the caller to recycle. If jobID no longer
// matches the pool's active job id by the time a free worker is
// acquired, the call returns ok=false without hashing; the check runs
// once per input.
//
// Ownership of inputs transfers to the pool for the duration of the
// call; inputs is always returned to the caller (cancelled or not) via
// the second return value so recycling never leaks buffers.
func (p *Pool) ComputeHashes(jobID int64, inputs [][]byte) (digests []byte, returned [][]byte, ok bool) {
	n := len(inputs)
	digests = make([]byte, n*digest.Size)
	returned = make([][]byte, n)

	var wg sync.WaitGroup
	wg.Add(n)

	for i, input := range inputs {
		// FIFO: block until a worker token is available.
		<-p.tokens

		if p.activeJobID.Load() != jobID {
			// Cancelled before this input was even dispatched.
			p.tokens <- struct{}{}
			wg.Done()
			returned[i] = input
			log.Debug().Str("module", "hasher").Int64("job", jobID).Msg("dispatch skipped: job superseded")
			continue
		}

		go func(i int, input []byte) {
			defer wg.Done()
			defer func() { p.tokens <- struct{}{} }()

			h := p.hashers.Get().(*digest.Hasher)
			h.Reset()
			_, _ = h.Write(input)
			sum := h.Sum(nil)
			p.hashers.Put(h)

			copy(digests[i*digest.Size:(i+1)*digest.Size], sum)
			returned[i] = input
		}(i, input)
	}

	wg.Wait()

	if p.activeJobID.Load() != jobID {
		return nil, returned, false
	}
	return digests, returned, true
}
