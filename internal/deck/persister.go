package deck

import (
	"context"
	"log"
	"sync"
	"time"
)

const defaultPersistTimeout = 10 * time.Second

type persistJob struct {
	categoryID string
	ops        []PersistOp
	barrier    chan struct{}
}

// persister applies op batches on a single goroutine in submission order, so a
// restart's reset can never overtake the writes of the pass before it. A
// failed batch is held with every batch submitted after it until retry.
type persister struct {
	sink    PersistenceSink
	timeout time.Duration

	mu     sync.Mutex
	jobs   []persistJob
	held   []persistJob
	err    error
	closed bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newPersister(sink PersistenceSink, timeout time.Duration) *persister {
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	p := &persister{
		sink:    sink,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) submit(categoryID string, ops []PersistOp) {
	if len(ops) == 0 {
		return
	}
	p.enqueue(persistJob{categoryID: categoryID, ops: ops})
}

func (p *persister) enqueue(job persistJob) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.jobs = append(p.jobs, job)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// flush waits until every batch submitted so far has been applied or held,
// and returns the failure holding the queue, if any.
func (p *persister) flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !p.enqueue(persistJob{barrier: barrier}) {
		return p.failure()
	}
	select {
	case <-barrier:
		return p.failure()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry puts the held batches back at the front of the queue and waits for them.
func (p *persister) retry(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.failure()
	}
	if len(p.held) > 0 {
		p.jobs = append(p.held, p.jobs...)
		p.held = nil
		p.err = nil
	}
	p.mu.Unlock()
	return p.flush(ctx)
}

func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.quit)
	<-p.done

	p.mu.Lock()
	if n := len(p.held); n > 0 {
		log.Printf("worldcup-service: dropping %d unpersisted batches: %v", n, p.err)
	}
	p.mu.Unlock()
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.quit:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		if len(p.jobs) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.jobs[0]
		p.jobs = p.jobs[1:]
		if job.barrier == nil && len(p.held) > 0 {
			p.held = append(p.held, job)
			p.mu.Unlock()
			continue
		}
		p.mu.Unlock()

		if job.barrier != nil {
			close(job.barrier)
			continue
		}
		p.apply(job)
	}
}

func (p *persister) apply(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err := p.sink.ApplyOps(ctx, job.categoryID, job.ops)
	if err == nil {
		return
	}
	perr := &PersistError{CategoryID: job.categoryID, Ops: len(job.ops), Err: err}
	log.Printf("worldcup-service: %v", perr)

	p.mu.Lock()
	p.held = append(p.held, job)
	p.err = perr
	p.mu.Unlock()
}

func (p *persister) failure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
