package plugin

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// TicksPerSecond is the rate at which the Scheduler advances, matching the
	// game's tick rate.
	TicksPerSecond = 20
	// TickDuration is the wall-clock length of a single scheduler tick.
	TickDuration = time.Second / TicksPerSecond
)

// Task is a delayed or repeating callback registered with a Scheduler.
type Task struct {
	owner     string
	fn        func()
	due       int64
	period    int64
	cancelled atomic.Bool
}

// Cancel stops the task from running again. Cancelling a task from within its
// own callback is permitted.
func (t *Task) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports if Cancel was called or the task's owner was disabled.
func (t *Task) Cancelled() bool {
	return t == nil || t.cancelled.Load()
}

// Scheduler runs posted callbacks and scheduled tasks on a single goroutine,
// one tick at a time. All callbacks executed by the same Scheduler are
// serialised, so state touched only from callbacks needs no locking.
type Scheduler struct {
	log *slog.Logger

	mu     sync.Mutex
	tick   int64
	posted []posted
	tasks  []*Task

	onPanic func(owner string, reason any)
}

type posted struct {
	owner string
	fn    func()
}

// NewScheduler returns a Scheduler at tick 0. Callbacks only run once Tick is
// called, either directly or through Run.
func NewScheduler(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{log: log.With("subsystem", "plugin.scheduler")}
}

// CurrentTick returns the number of ticks processed so far.
func (s *Scheduler) CurrentTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Post queues fn to run at the start of the next tick.
func (s *Scheduler) Post(owner string, fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.posted = append(s.posted, posted{owner: owner, fn: fn})
	s.mu.Unlock()
}

// Delayed runs fn once, delay ticks from now. A delay below 1 is treated as 1.
func (s *Scheduler) Delayed(owner string, delay int, fn func()) *Task {
	return s.schedule(owner, delay, 0, fn)
}

// Repeating runs fn every interval ticks, starting interval ticks from now. An
// interval below 1 is treated as 1.
func (s *Scheduler) Repeating(owner string, interval int, fn func()) *Task {
	return s.schedule(owner, interval, max(interval, 1), fn)
}

func (s *Scheduler) schedule(owner string, delay, period int, fn func()) *Task {
	task := &Task{owner: owner, fn: fn, period: int64(period)}
	if fn == nil {
		task.cancelled.Store(true)
		return task
	}
	s.mu.Lock()
	task.due = s.tick + int64(max(delay, 1))
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	return task
}

// CancelOwner cancels every task and drops every posted callback registered
// under owner.
func (s *Scheduler) CancelOwner(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.tasks[:0]
	for _, task := range s.tasks {
		if task.owner == owner {
			task.cancelled.Store(true)
			continue
		}
		tasks = append(tasks, task)
	}
	clear(s.tasks[len(tasks):])
	s.tasks = tasks

	queue := s.posted[:0]
	for _, p := range s.posted {
		if p.owner != owner {
			queue = append(queue, p)
		}
	}
	clear(s.posted[len(queue):])
	s.posted = queue
}

func (s *Scheduler) rename(oldName, newName string) {
	if newName == "" || oldName == newName {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if task.owner == oldName {
			task.owner = newName
		}
	}
	for i := range s.posted {
		if s.posted[i].owner == oldName {
			s.posted[i].owner = newName
		}
	}
}

// Pending returns the number of tasks that have not finished or been
// cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, task := range s.tasks {
		if !task.Cancelled() {
			n++
		}
	}
	return n
}

// Tick advances the scheduler by one tick. Posted callbacks run first, in the
// order they were posted, followed by every task that became due, in the order
// the tasks were scheduled.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.tick++
	tick := s.tick
	queue := s.posted
	s.posted = nil

	due := make([]*Task, 0, len(s.tasks))
	tasks := s.tasks[:0]
	for _, task := range s.tasks {
		if task.Cancelled() {
			continue
		}
		if task.due <= tick {
			due = append(due, task)
			if task.period == 0 {
				continue
			}
			task.due = tick + task.period
		}
		tasks = append(tasks, task)
	}
	clear(s.tasks[len(tasks):])
	s.tasks = tasks
	s.mu.Unlock()

	for _, p := range queue {
		s.invoke(p.owner, p.fn)
	}
	for _, task := range due {
		// A callback earlier in this tick may have cancelled the task.
		if task.Cancelled() {
			continue
		}
		s.invoke(task.owner, task.fn)
	}
}

// Run calls Tick every TickDuration until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	tc := time.NewTicker(TickDuration)
	defer tc.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tc.C:
			start := time.Now()
			s.Tick()
			if took := time.Since(start); took > TickDuration {
				s.log.Debug("Scheduler tick took longer than a tick.", "duration", took)
			}
		}
	}
}

func (s *Scheduler) invoke(owner string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if s.onPanic != nil {
				s.onPanic(owner, r)
				return
			}
			s.log.Error("Scheduled callback panicked.", "owner", owner, "panic", r)
		}
	}()
	fn()
}
