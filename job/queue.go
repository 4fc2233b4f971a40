package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrQueueClosed = errors.New("analysis queue is shutting down")

// Runner 执行一次合同分析，service.AnalysisRunner 满足
type Runner interface {
	Run(ctx context.Context, contractID string) error
}

// Queue 有界分析队列，HTTP 请求只负责入队
type Queue struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan string
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan string, n)
		}
	}
}

func WithRunTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(runner Runner, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		runner:  runner,
		logger:  logger,
		workers: 2,
		timeout: 15 * time.Minute,
		ch:      make(chan string, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for id := range q.ch {
					q.run(workerID, id)
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) run(workerID int, contractID string) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue.run.panic", "worker_id", workerID, "contract_id", contractID, "panic", r)
		}
	}()

	start := time.Now()
	if err := q.runner.Run(ctx, contractID); err != nil {
		q.logger.Error("queue.run.failed", "worker_id", workerID, "contract_id", contractID, "error", err)
		return
	}
	q.logger.Info("queue.run.done", "worker_id", workerID, "contract_id", contractID, "elapsed", time.Since(start))
}

// Enqueue 队列满时阻塞，直到有空位或 ctx 结束
func (q *Queue) Enqueue(ctx context.Context, contractID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- contractID:
		q.logger.Info("queue.enqueued", "contract_id", contractID)
		return nil
	default:
	}
	q.logger.Warn("queue.full", "contract_id", contractID)
	select {
	case q.ch <- contractID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown 停止接收新任务，等待已入队任务跑完或 ctx 结束
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
