package importer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// DefaultPollInterval is how often a watched job is re-fetched.
const DefaultPollInterval = 5 * time.Second

// JobReader fetches job snapshots.
type JobReader interface {
	GetJob(ctx context.Context, id string) (*models.ImportJob, error)
}

// Poller watches one asynchronous job until it reaches a terminal state.
// At most one polling task is live at a time; watching a new job id
// cancels the previous task, so a superseded poll can never fire a stale
// callback.
type Poller struct {
	reader   JobReader
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	jobID  string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. interval <= 0 selects DefaultPollInterval.
func NewPoller(reader JobReader, interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{reader: reader, interval: interval, log: log}
}

// Watching returns the job id currently being polled, or "".
func (p *Poller) Watching() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jobID
}

// Watch starts polling jobID. onUpdate fires on every successful poll,
// terminal one included; onTerminal fires exactly once when the job
// reaches succeeded/failed/cancelled, after which polling stops. Watching
// the id already being polled is a no-op; any other watch supersedes the
// running task.
func (p *Poller) Watch(ctx context.Context, jobID string, onUpdate func(*models.ImportJob), onTerminal func(*models.ImportJob)) {
	p.mu.Lock()
	if p.jobID == jobID && p.cancel != nil {
		p.mu.Unlock()
		return
	}
	p.stopLocked()

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.jobID = jobID
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	p.log.Debug("poller armed", "job_id", jobID, "interval", p.interval)

	go p.run(pollCtx, jobID, done, onUpdate, onTerminal)
}

// Stop cancels the current polling task and waits for it to wind down.
// Safe to call when nothing is being watched.
func (p *Poller) Stop() {
	p.mu.Lock()
	done := p.done
	p.stopLocked()
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

// stopLocked cancels without waiting. Caller holds p.mu.
func (p *Poller) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.jobID = ""
	p.done = nil
}

func (p *Poller) run(ctx context.Context, jobID string, done chan struct{}, onUpdate func(*models.ImportJob), onTerminal func(*models.ImportJob)) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		job, err := p.reader.GetJob(ctx, jobID)
		if ctx.Err() != nil {
			// Superseded or torn down mid-fetch; the snapshot is stale.
			return
		}
		if err != nil {
			p.log.Warn("job poll failed", "job_id", jobID, "error", err)
		} else {
			if onUpdate != nil {
				onUpdate(job)
			}
			if job.Status.Terminal() {
				p.mu.Lock()
				if p.jobID == jobID {
					// Release the derived context now rather than
					// holding it until the parent context ends.
					p.cancel()
					p.cancel = nil
					p.jobID = ""
					p.done = nil
				}
				p.mu.Unlock()

				p.log.Debug("job reached terminal state", "job_id", jobID, "status", job.Status)
				if onTerminal != nil {
					onTerminal(job)
				}
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
