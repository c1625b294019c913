package audit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// recorderQueueSize bounds the entries waiting for the write worker.
const recorderQueueSize = 64

// defaultWriteTimeout bounds one insert by the worker.
const defaultWriteTimeout = 2 * time.Second

// ErrRecorderClosed is returned by Record after Close.
var ErrRecorderClosed = errors.New("audit: recorder closed")

// Logger is the logging interface used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder writes entries to a Repository on its own goroutine so callers
// never wait on the database.
type Recorder struct {
	repo    Repository
	logger  Logger
	timeout time.Duration

	queue chan Entry
	wg    sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool
	mu        sync.RWMutex // guards send on queue against close

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewRecorder starts a recorder writing to repo.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Recorder{
		repo:    repo,
		logger:  logger,
		timeout: defaultWriteTimeout,
		queue:   make(chan Entry, recorderQueueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record queues e. The timestamp is taken now so queueing does not skew it.
// A full queue drops the entry.
func (r *Recorder) Record(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed.Load() {
		return ErrRecorderClosed
	}
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
	}
	return nil
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.repo.Create(ctx, &e)
		cancel()
		if err != nil {
			r.failed.Add(1)
			r.logger.Warn("recording session history failed", "action", e.Action, "serial", e.Serial, "error", err)
			continue
		}
		r.written.Add(1)
	}
}

// Close stops accepting entries, writes what is queued, and waits for the
// worker to finish.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed.Store(true)
		close(r.queue)
		r.mu.Unlock()
		r.wg.Wait()
	})
	return nil
}

// Stats returns how many entries were written, dropped on a full queue,
// and rejected by the repository.
func (r *Recorder) Stats() (written, dropped, failed uint64) {
	return r.written.Load(), r.dropped.Load(), r.failed.Load()
}
