package scanworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ScanJob is one unit of scheduler work, keyed so all jobs of a tenant
// land on the same worker and run sequentially.
type ScanJob struct {
	Key     string
	Handler func(ctx context.Context) error
}

// Pool is a sharded worker pool. Sharding by key keeps per-tenant scans
// serialized while letting slow tenants run without starving the rest.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
}

type worker struct {
	id       int
	jobQueue chan ScanJob
	pool     *Pool
}

func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		w := &worker{
			id:       i,
			jobQueue: make(chan ScanJob, p.queueSize),
			pool:     p,
		}
		p.workers[i] = w
		p.wg.Add(1)
		go w.run(ctx, &p.wg)
	}
	logrus.Infof("[SCAN_POOL] Started with %d workers, queue size %d", p.numWorkers, p.queueSize)
}

// TryDispatch enqueues the job on the key's shard without blocking.
// Returns false when the shard queue is full or the pool is stopped.
func (p *Pool) TryDispatch(job ScanJob) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}
	shard := p.shardFor(job.Key)
	atomic.AddInt64(&p.totalDispatched, 1)

	select {
	case p.workers[shard].jobQueue <- job:
		return true
	default:
		atomic.AddInt64(&p.totalDropped, 1)
		logrus.Warnf("[SCAN_POOL] Worker %d queue full, dropping scan for %s", shard, job.Key)
		return false
	}
}

// Stop closes the queues and waits for in-flight jobs to drain.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		for _, w := range p.workers {
			close(w.jobQueue)
		}
		p.wg.Wait()
	})
}

type Stats struct {
	NumWorkers      int   `json:"num_workers"`
	TotalDispatched int64 `json:"total_dispatched"`
	TotalProcessed  int64 `json:"total_processed"`
	TotalDropped    int64 `json:"total_dropped"`
	TotalErrors     int64 `json:"total_errors"`
}

func (p *Pool) GetStats() Stats {
	return Stats{
		NumWorkers:      p.numWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
	}
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (w *worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range w.jobQueue {
		if ctx.Err() != nil {
			return
		}
		w.execute(ctx, job)
	}
}

func (w *worker) execute(ctx context.Context, job ScanJob) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
			logrus.Errorf("[SCAN_POOL] Worker %d panic on %s: %v", w.id, job.Key, r)
		}
	}()

	if err := job.Handler(ctx); err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Warnf("[SCAN_POOL] Scan for %s failed", job.Key)
	}
	atomic.AddInt64(&w.pool.totalProcessed, 1)
}
