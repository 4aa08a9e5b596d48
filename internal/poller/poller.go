// Package poller wraps periodic Player/Group refresh on either a fixed
// interval or a cron expression. It is a convenience layer over the
// public Refresh method: nothing in internal/player or internal/group
// depends on it, and a caller is free to drive refresh with its own
// ticker instead.
package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MinInterval is the lowest fixed-interval refresh period the poller will
// accept, matching the floor the core assumes devices can sustain without
// the HTTP polling itself becoming the load.
const MinInterval = 60 * time.Second

// Refresher is anything with a public Refresh method: *player.Player and
// *group.Group both satisfy it without this package importing either.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// job pairs a Refresher with the cron.Schedule computing its next run.
type job struct {
	name      string
	refresher Refresher
	schedule  cron.Schedule
}

// Poller runs any number of named refresh jobs concurrently, each on its
// own schedule, until Stop is called.
type Poller struct {
	parser cron.Parser
	logger *log.Logger

	mu   sync.Mutex
	jobs map[string]*job

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Poller. logger may be nil, in which case log.Default() is
// used.
func New(logger *log.Logger) *Poller {
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger: logger,
		jobs:   map[string]*job{},
		stopCh: make(chan struct{}),
	}
}

// RegisterInterval schedules r.Refresh to run every interval, starting one
// interval from now. interval below MinInterval is rejected.
func (p *Poller) RegisterInterval(name string, r Refresher, interval time.Duration) error {
	if interval < MinInterval {
		return fmt.Errorf("poller: interval %s below minimum %s", interval, MinInterval)
	}
	return p.register(name, r, cron.Every(interval))
}

// RegisterCron schedules r.Refresh per a standard 5-field cron expression
// (minute hour dom month dow).
func (p *Poller) RegisterCron(name string, r Refresher, expr string) error {
	schedule, err := p.parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("poller: invalid cron expression %q: %w", expr, err)
	}
	return p.register(name, r, schedule)
}

func (p *Poller) register(name string, r Refresher, schedule cron.Schedule) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.jobs[name]; exists {
		return fmt.Errorf("poller: job %q already registered", name)
	}
	p.jobs[name] = &job{name: name, refresher: r, schedule: schedule}
	return nil
}

// Unregister removes a job. It has no effect on a run already in flight.
func (p *Poller) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.jobs, name)
}

// Start launches one goroutine per registered job. Jobs registered after
// Start has been called are not picked up; register everything first.
func (p *Poller) Start() {
	p.mu.Lock()
	jobs := make([]*job, 0, len(p.jobs))
	for _, j := range p.jobs {
		jobs = append(jobs, j)
	}
	p.mu.Unlock()

	for _, j := range jobs {
		p.wg.Add(1)
		go p.run(j)
	}
}

// Stop halts every running job and waits for in-flight refreshes to
// return. Idempotent.
func (p *Poller) Stop() {
	select {
	case <-p.stopCh:
		return
	default:
		close(p.stopCh)
	}
	p.wg.Wait()
}

func (p *Poller) run(j *job) {
	defer p.wg.Done()
	now := time.Now()
	next := j.schedule.Next(now)

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-p.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), MinInterval)
			if err := j.refresher.Refresh(ctx); err != nil {
				p.logger.Printf("WARN poller: job %q refresh failed: %v", j.name, err)
			}
			cancel()
			next = j.schedule.Next(time.Now())
		}
	}
}
