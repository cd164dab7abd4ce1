package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hugolhafner/streamtest/job"
	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/logger"
	"github.com/hugolhafner/streamtest/registry"
)

const pollTimeout = 100 * time.Millisecond

// ProcessFunc is the business logic under test, invoked once per record.
type ProcessFunc func(ctx context.Context, record kafka.ConsumerRecord) error

// Worker is a reference stream worker that consumes a partitioned input topic
// and fulfils the task self-registration contract: one task per assigned
// partition registers itself with the injected registry, signals initialized
// after its setup hook, and signals message-received (plus, once,
// first-event-processed) per handled record.
type Worker struct {
	registry *registry.Registry
	process  ProcessFunc
	logger   logger.Logger

	clientFactory func(cfg job.Config) (kafka.Client, error)

	// completeAfter > 0 makes the worker finish successfully after that many
	// records, exercising the Completing path.
	completeAfter int

	commitInterval time.Duration
	commitCount    int
}

type Option func(*Worker)

func WithProcessFunc(fn ProcessFunc) Option {
	return func(w *Worker) {
		w.process = fn
	}
}

func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		w.logger = l.With("component", "worker")
	}
}

func WithClientFactory(fn func(cfg job.Config) (kafka.Client, error)) Option {
	return func(w *Worker) {
		w.clientFactory = fn
	}
}

func WithCompleteAfter(records int) Option {
	return func(w *Worker) {
		w.completeAfter = records
	}
}

func New(reg *registry.Registry, opts ...Option) *Worker {
	w := &Worker{
		registry:       reg,
		logger:         logger.NewNoopLogger(),
		commitInterval: time.Second,
		commitCount:    10,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.clientFactory == nil {
		w.clientFactory = w.defaultClientFactory
	}

	return w
}

func (w *Worker) defaultClientFactory(cfg job.Config) (kafka.Client, error) {
	servers := strings.Split(cfg[job.KeyBootstrapServers], ",")
	if len(servers) == 0 || servers[0] == "" {
		return nil, fmt.Errorf("config missing %s", job.KeyBootstrapServers)
	}

	group := cfg[job.KeyJobName]
	if group == "" {
		group = "streamtest-worker"
	}

	return kafka.NewKgoClient(
		kafka.WithBootstrapServers(servers),
		kafka.WithGroupID(group),
		kafka.WithStartAtEarliest(),
		kafka.WithLogger(w.logger),
	)
}

var _ job.Runner = (*Worker)(nil)

// Launch starts one worker run consuming the configured input topic.
func (w *Worker) Launch(cfg job.Config) (job.Handle, error) {
	topic := cfg[job.KeyInputTopic]
	if topic == "" {
		return nil, fmt.Errorf("config missing %s", job.KeyInputTopic)
	}

	client, err := w.clientFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create worker client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(cancel)
	h.setStatus(job.Starting)

	r := &run{
		worker:    w,
		handle:    h,
		client:    client,
		stateRoot: cfg[job.KeyStateDir],
		tasks:     make(map[kafka.TopicPartition]*partitionTask),
		committer: newPeriodicCommitter(w.commitInterval, w.commitCount),
	}

	if err := client.Subscribe([]string{topic}, r); err != nil {
		cancel()
		client.Close()
		return nil, fmt.Errorf("subscribe worker: %w", err)
	}

	go r.loop(ctx)

	return h, nil
}

// run is one launched worker instance.
type run struct {
	worker    *Worker
	handle    *handle
	client    kafka.Client
	stateRoot string
	committer *periodicCommitter

	mu    sync.Mutex
	tasks map[kafka.TopicPartition]*partitionTask
}

var _ kafka.RebalanceCallback = (*run)(nil)

// OnAssigned allocates and registers one task per newly assigned partition.
func (r *run) OnAssigned(partitions []kafka.TopicPartition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tp := range partitions {
		if _, exists := r.tasks[tp]; exists {
			continue
		}

		task := newPartitionTask(tp, r.stateRoot)
		if _, err := r.worker.registry.Register(task); err != nil {
			r.worker.logger.Error("task registration failed", "task", string(task.Name()), "error", err)
			continue
		}

		if err := task.setup(); err != nil {
			r.worker.logger.Error("task setup failed", "task", string(task.Name()), "error", err)
			continue
		}

		r.worker.registry.SignalInitialized(task.Name())
		r.tasks[tp] = task
	}
}

func (r *run) OnRevoked(partitions []kafka.TopicPartition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tp := range partitions {
		delete(r.tasks, tp)
	}
}

func (r *run) taskFor(tp kafka.TopicPartition) (*partitionTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[tp]
	return task, ok
}

func (r *run) loop(ctx context.Context) {
	defer r.client.Close()

	r.handle.setStatus(job.Running)

	processed := 0
	for {
		select {
		case <-ctx.Done():
			r.finish()
			return
		default:
		}

		records, err := r.client.Poll(ctx, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				r.finish()
				return
			}

			r.worker.logger.Error("poll failed", "error", err)
			r.handle.setStatus(job.UnsuccessfulFinish)
			return
		}

		for _, record := range records {
			task, ok := r.taskFor(record.TopicPartition())
			if !ok {
				continue
			}

			if r.worker.process != nil {
				if err := r.worker.process(ctx, record); err != nil {
					r.worker.logger.Error(
						"process failed, skipping record",
						"task", string(task.Name()), "offset", record.Offset, "error", err,
					)
				}
			}

			r.worker.registry.SignalMessageReceived(task.Name(), record)
			if !task.sawFirstEvent {
				task.sawFirstEvent = true
				r.worker.registry.SignalFirstEventProcessed(task.Name())
			}

			r.client.MarkRecords(record)
			processed++
		}

		r.committer.RecordProcessed(len(records))
		select {
		case <-r.committer.C():
			if err := r.client.Commit(ctx); err != nil {
				r.worker.logger.Warn("offset commit failed", "error", err)
			}
		default:
		}

		if r.worker.completeAfter > 0 && processed >= r.worker.completeAfter {
			r.handle.setStatus(job.Completing)
			r.commitFinal()
			r.handle.setStatus(job.SuccessfulFinish)
			return
		}
	}
}

// finish is the interrupt path: a best-effort final commit, then the
// unsuccessful terminal status. A kill is an interrupt, so a killed run never
// reports SuccessfulFinish.
func (r *run) finish() {
	r.commitFinal()
	r.handle.setStatus(job.UnsuccessfulFinish)
}

func (r *run) commitFinal() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Commit(ctx); err != nil {
		r.worker.logger.Warn("final offset commit failed", "error", err)
	}
}
