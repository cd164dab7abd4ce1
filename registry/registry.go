package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/logger"
)

// DefaultTimeout bounds every await operation unless the caller overrides it.
const DefaultTimeout = 60 * time.Second

// TaskName is a stable identity for one partition-assigned task instance
// within a single job run. Names are never reused within a run.
type TaskName string

// Task is the worker-side handle registered with the registry.
type Task interface {
	Name() TaskName
	Partition() kafka.TopicPartition
}

// Entry associates a task with its synchronization gates. The entry persists
// for the run's lifetime; the message-received gate is rearmed between
// exchange rounds, the first-event gate is signaled once and never rearmed.
type Entry struct {
	Task Task

	Registered          *Gate
	Initialized         *Gate
	MessageReceived     *Gate
	FirstEventProcessed *Gate

	mu           sync.Mutex
	lastReceived kafka.ConsumerRecord
	hasReceived  bool
}

func (e *Entry) setLastReceived(record kafka.ConsumerRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastReceived = record.Copy()
	e.hasReceived = true
}

// LastReceived returns the most recently observed record for this task.
func (e *Entry) LastReceived() (kafka.ConsumerRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastReceived, e.hasReceived
}

// Registry tracks worker task instances as they register and exposes blocking
// waits on their lifecycle gates. It is written concurrently by worker-side
// goroutines and waited on by the test driver; an instance is owned by one
// harness and injected into the worker through its configuration context, so
// no state leaks across test runs.
type Registry struct {
	mu      sync.Mutex
	entries map[TaskName]*Entry
	changed chan struct{}

	logger logger.Logger
}

type RegistryOption func(*Registry)

func WithLogger(l logger.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l.With("component", "registry")
	}
}

func New(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[TaskName]*Entry),
		changed: make(chan struct{}),
		logger:  logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a task on first contact and signals its registration gate.
// Registering the same name twice in one run is an error.
func (r *Registry) Register(task Task) (*Entry, error) {
	r.mu.Lock()

	if _, exists := r.entries[task.Name()]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("task %s already registered", task.Name())
	}

	entry := &Entry{
		Task:                task,
		Registered:          NewGate(),
		Initialized:         NewGate(),
		MessageReceived:     NewGate(),
		FirstEventProcessed: NewGate(),
	}
	r.entries[task.Name()] = entry
	entry.Registered.Signal()

	// Wake anyone blocked on the registration count.
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()

	r.logger.Debug("task registered", "task", string(task.Name()), "partition", task.Partition().String())

	return entry, nil
}

// SignalInitialized marks the task's setup hook as complete.
func (r *Registry) SignalInitialized(name TaskName) {
	entry, ok := r.entry(name)
	if !ok {
		r.logger.Warn("initialized signal for unknown task", "task", string(name))
		return
	}

	entry.Initialized.Signal()
}

// SignalMessageReceived records the handled record and signals the
// message-received gate for the current round.
func (r *Registry) SignalMessageReceived(name TaskName, record kafka.ConsumerRecord) {
	entry, ok := r.entry(name)
	if !ok {
		r.logger.Warn("message-received signal for unknown task", "task", string(name))
		return
	}

	entry.setLastReceived(record)
	entry.MessageReceived.Signal()
}

// SignalFirstEventProcessed marks that the task has begun consuming. Signaled
// at most once per run; never rearmed.
func (r *Registry) SignalFirstEventProcessed(name TaskName) {
	entry, ok := r.entry(name)
	if !ok {
		r.logger.Warn("first-event signal for unknown task", "task", string(name))
		return
	}

	entry.FirstEventProcessed.Signal()
}

// AwaitAllRegistered blocks until exactly expected tasks have registered.
// On success the registration gates are rearmed so a subsequent job start can
// reuse the registry. Observing more than expected registrations is an error.
func (r *Registry) AwaitAllRegistered(expected int, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		r.mu.Lock()
		count := len(r.entries)
		changed := r.changed
		if count == expected {
			for _, entry := range r.entries {
				entry.Registered.Rearm()
			}
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		if count > expected {
			return fmt.Errorf("expected %d registered tasks, observed %d", expected, count)
		}

		select {
		case <-changed:
		case <-deadline.C:
			return fmt.Errorf(
				"expected %d registered tasks within %v, observed %d (%d remaining)",
				expected, timeout, count, expected-count,
			)
		}
	}
}

// AwaitInitialized blocks until the task's initialization gate is signaled.
func (r *Registry) AwaitInitialized(name TaskName, timeout time.Duration) error {
	entry, ok := r.entry(name)
	if !ok {
		return fmt.Errorf("task %s not registered", name)
	}

	if err := entry.Initialized.Wait(timeout); err != nil {
		return fmt.Errorf("task %s initialization: %w", name, err)
	}

	return nil
}

// AwaitMessageReceived blocks until the task observes a record in the current
// round. Callers rearm via RearmMessageReceived before the next send.
func (r *Registry) AwaitMessageReceived(name TaskName, timeout time.Duration) error {
	entry, ok := r.entry(name)
	if !ok {
		return fmt.Errorf("task %s not registered", name)
	}

	if err := entry.MessageReceived.Wait(timeout); err != nil {
		return fmt.Errorf("task %s message receipt: %w", name, err)
	}

	return nil
}

// RearmMessageReceived resets the task's message-received gate for the next
// exchange round.
func (r *Registry) RearmMessageReceived(name TaskName) {
	entry, ok := r.entry(name)
	if !ok {
		return
	}

	entry.MessageReceived.Rearm()
}

// AwaitFirstEventProcessed blocks until the task has processed its first
// record of the run.
func (r *Registry) AwaitFirstEventProcessed(name TaskName, timeout time.Duration) error {
	entry, ok := r.entry(name)
	if !ok {
		return fmt.Errorf("task %s not registered", name)
	}

	if err := entry.FirstEventProcessed.Wait(timeout); err != nil {
		return fmt.Errorf("task %s first event: %w", name, err)
	}

	return nil
}

func (r *Registry) entry(name TaskName) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	return entry, ok
}

// Entry returns the registry entry for a task, if registered.
func (r *Registry) Entry(name TaskName) (*Entry, bool) {
	return r.entry(name)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Names returns the registered task names in no particular order.
func (r *Registry) Names() []TaskName {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]TaskName, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	return names
}

// LastReceived returns the most recent record observed by the named task.
func (r *Registry) LastReceived(name TaskName) (kafka.ConsumerRecord, bool) {
	entry, ok := r.entry(name)
	if !ok {
		return kafka.ConsumerRecord{}, false
	}

	return entry.LastReceived()
}
