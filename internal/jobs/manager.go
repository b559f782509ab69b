// Package jobs runs ingestion requests in the background with at most one
// running job per label.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sensorset/internal/ingest"
	"github.com/banshee-data/sensorset/internal/monitoring"
	"github.com/banshee-data/sensorset/internal/timeutil"
)

var (
	// ErrLabelBusy is returned by Start when the label already has a running job.
	ErrLabelBusy = errors.New("label has a running job")
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrNotRunning is returned by Stop for jobs that already finished.
	ErrNotRunning = errors.New("job is not running")
	// ErrClosed is returned by Start after Shutdown.
	ErrClosed = errors.New("job manager is shut down")
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// DefaultRetention is how long finished jobs stay visible.
const DefaultRetention = time.Hour

// Runner is the work a job performs. *ingest.Ingester implements it.
type Runner interface {
	Validate(req ingest.Request) ([]string, error)
	Run(ctx context.Context, req ingest.Request, progress func(ingest.Progress)) (*ingest.Report, error)
}

// Job is a snapshot of one background run.
type Job struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	Folder     string          `json:"folder"`
	Status     Status          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Progress   ingest.Progress `json:"progress"`
	Report     *ingest.Report  `json:"report,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type entry struct {
	job    Job
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns the job table. One mutex guards both the table and the set of
// busy labels.
type Manager struct {
	runner    Runner
	clock     timeutil.Clock
	retention time.Duration

	base     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu     sync.Mutex
	jobs   map[string]*entry
	busy   map[string]string // label -> job ID
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used for timestamps and pruning.
func WithClock(c timeutil.Clock) Option { return func(m *Manager) { m.clock = c } }

// WithRetention sets how long finished jobs are kept.
func WithRetention(d time.Duration) Option { return func(m *Manager) { m.retention = d } }

// NewManager returns a Manager that executes jobs with r.
func NewManager(r Runner, opts ...Option) *Manager {
	base, cancel := context.WithCancel(context.Background())
	m := &Manager{
		runner:    r,
		clock:     timeutil.RealClock{},
		retention: DefaultRetention,
		base:      base,
		shutdown:  cancel,
		jobs:      make(map[string]*entry),
		busy:      make(map[string]string),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start validates req and launches it in the background. Validation errors
// and ErrLabelBusy are returned before anything runs. Use Stop to cancel the
// job.
func (m *Manager) Start(req ingest.Request) (Job, error) {
	if _, err := m.runner.Validate(req); err != nil {
		return Job{}, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Job{}, ErrClosed
	}
	if id, ok := m.busy[req.Label]; ok {
		m.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s (job %s)", ErrLabelBusy, req.Label, id)
	}
	jctx, cancel := context.WithCancel(m.base)
	e := &entry{
		job: Job{
			ID:        uuid.New().String(),
			Label:     req.Label,
			Folder:    req.Folder,
			Status:    StatusRunning,
			StartedAt: m.clock.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.jobs[e.job.ID] = e
	m.busy[req.Label] = e.job.ID
	snapshot := e.job
	m.wg.Add(1)
	m.mu.Unlock()

	monitoring.Logf("[jobs] started %s for label %s", snapshot.ID, snapshot.Label)
	go m.run(jctx, e, req)
	return snapshot, nil
}

func (m *Manager) run(ctx context.Context, e *entry, req ingest.Request) {
	defer m.wg.Done()
	defer close(e.done)

	rep, err := m.runner.Run(ctx, req, func(p ingest.Progress) {
		m.mu.Lock()
		e.job.Progress = p
		m.mu.Unlock()
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	e.job.FinishedAt = &now
	e.job.Report = rep
	switch {
	case err != nil:
		e.job.Status = StatusFailed
		e.job.Error = err.Error()
	case rep != nil && rep.Cancelled:
		e.job.Status = StatusStopped
	default:
		e.job.Status = StatusCompleted
	}
	delete(m.busy, e.job.Label)
	e.cancel()
	monitoring.Logf("[jobs] %s finished: %s", e.job.ID, e.job.Status)
}

// Get returns a snapshot of the job with id.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// List returns all known jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	out := make([]Job, 0, len(m.jobs))
	for _, e := range m.jobs {
		out = append(out, e.job)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Busy reports whether label has a running job.
func (m *Manager) Busy(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.busy[label]
	return ok
}

// reservedHolder marks a label held by WithLabel instead of a job.
const reservedHolder = "reserved"

// WithLabel runs fn while holding label, so no job can start on it until fn
// returns. It returns ErrLabelBusy without calling fn when the label already
// has a running job.
func (m *Manager) WithLabel(label string, fn func() error) error {
	m.mu.Lock()
	if id, ok := m.busy[label]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s (%s)", ErrLabelBusy, label, id)
	}
	m.busy[label] = reservedHolder
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.busy, label)
		m.mu.Unlock()
	}()
	return fn()
}

// Stop asks a running job to stop. The job finishes its current chunk write
// and then reports StatusStopped.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if e.job.Status != StatusRunning {
		return ErrNotRunning
	}
	e.cancel()
	monitoring.Logf("[jobs] stop requested for %s", id)
	return nil
}

// Wait blocks until the job with id finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (Job, error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return Job{}, ErrJobNotFound
	}
	select {
	case <-e.done:
		j, _ := m.Get(id)
		return j, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Prune drops finished jobs older than the retention period and returns how
// many were removed.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.clock.Now().Add(-m.retention)
	n := 0
	for id, e := range m.jobs {
		if e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n
}

// StartPruner calls Prune every interval until ctx is done.
func (m *Manager) StartPruner(ctx context.Context, interval time.Duration) {
	t := m.clock.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				if n := m.Prune(); n > 0 {
					monitoring.Debugf("[jobs] pruned %d finished jobs", n)
				}
			}
		}
	}()
}

// Shutdown stops every running job and waits for them to finish or for ctx
// to expire. Start fails afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.shutdown()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
