package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hugolhafner/streamtest/cluster"
	"github.com/hugolhafner/streamtest/exchange"
	"github.com/hugolhafner/streamtest/job"
	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/logger"
	"github.com/hugolhafner/streamtest/registry"
)

// RunnerFactory builds the worker under test around the harness-owned
// registry. The registry is injected rather than ambient so no task state
// leaks across runs.
type RunnerFactory func(reg *registry.Registry) job.Runner

// Harness wires the embedded cluster, the task registry, the job lifecycle
// controller, and the message exchange driver into one scoped resource:
// everything acquired in Start is released by Close, on success and failure
// paths alike.
type Harness struct {
	config Config
	logger logger.Logger

	registry   *registry.Registry
	cluster    *cluster.Cluster
	validator  *cluster.TopicValidator
	inspector  *cluster.GroupInspector
	controller *job.Controller
	driver     *exchange.Driver
	producer   *kafka.KgoClient

	mu      sync.Mutex
	started bool
	closed  bool
	handle  job.Handle
	jobCfg  job.Config
}

func New(factory RunnerFactory, opts ...Option) *Harness {
	cfg := defaultHarnessConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Harness{
		config:   cfg,
		logger:   cfg.Logger,
		registry: registry.New(registry.WithLogger(cfg.Logger)),
	}
	h.cluster = cluster.New(
		cluster.WithBrokers(cfg.Brokers),
		cluster.WithLogger(cfg.Logger),
	)

	runner := factory(h.registry)
	h.controller = job.NewController(
		runner, h.registry,
		job.WithProvisioner(job.ProvisionerFunc(h.provision)),
		job.WithTimeout(cfg.Timeout),
		job.WithLogger(cfg.Logger),
	)

	return h
}

// provision creates and validates the job's input topic before launch.
func (h *Harness) provision(ctx context.Context, cfg job.Config) error {
	topic := cfg[job.KeyInputTopic]

	if err := h.validator.CreateTopic(ctx, topic, h.config.Partitions, h.config.Replication); err != nil {
		return err
	}

	return h.validator.Validate(ctx, topic, int(h.config.Partitions))
}

// Start boots the cluster, launches the job, and blocks until the expected
// number of tasks have registered and initialized.
func (h *Harness) Start(ctx context.Context) (err error) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return fmt.Errorf("harness already started")
	}
	h.started = true
	h.mu.Unlock()

	// Release whatever was acquired if any later step fails; Close stays
	// callable for the caller's own deferred cleanup.
	defer func() {
		if err != nil {
			h.Close()
		}
	}()

	if err := h.cluster.Start(); err != nil {
		return fmt.Errorf("start cluster: %w", err)
	}

	admin, err := h.cluster.Admin()
	if err != nil {
		return fmt.Errorf("create admin client: %w", err)
	}
	h.validator = cluster.NewTopicValidator(admin, h.logger)
	h.inspector = cluster.NewGroupInspector(admin, h.logger)

	addrs := h.cluster.BrokerAddrs()

	producer, err := kafka.NewKgoClient(
		kafka.WithBootstrapServers(addrs),
		kafka.WithLogger(h.logger),
	)
	if err != nil {
		return fmt.Errorf("create producer: %w", err)
	}
	h.producer = producer

	h.driver = exchange.NewDriver(
		producer, h.registry,
		exchange.WithBootstrapServers(addrs),
		exchange.WithTimeout(h.config.Timeout),
		exchange.WithLogger(h.logger),
	)

	h.jobCfg = h.config.JobConfig.Merge(
		job.Config{
			job.KeyJobName:          h.config.JobName,
			job.KeyInputTopic:       h.config.InputTopic,
			job.KeyBootstrapServers: joinAddrs(addrs),
			job.KeyStateDir:         h.cluster.StateRoot(),
		},
	)

	handle, err := h.controller.Start(ctx, h.jobCfg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.handle = handle
	h.mu.Unlock()

	if err := h.registry.AwaitAllRegistered(h.config.ExpectedTasks, h.config.Timeout); err != nil {
		return fmt.Errorf("task registration: %w", err)
	}

	for _, name := range h.registry.Names() {
		if err := h.registry.AwaitInitialized(name, h.config.Timeout); err != nil {
			return err
		}
	}

	return nil
}

// Run starts the harness, invokes fn, and guarantees Close on every exit
// path, including a panic inside fn.
func (h *Harness) Run(ctx context.Context, fn func(ctx context.Context, h *Harness) error) error {
	defer h.Close()

	if err := h.Start(ctx); err != nil {
		return err
	}

	return fn(ctx, h)
}

// Send publishes payload to the job's input topic and waits for the owning
// task to corroborate receipt.
func (h *Harness) Send(ctx context.Context, payload []byte) error {
	task, err := h.Task()
	if err != nil {
		return err
	}

	return h.driver.Send(ctx, h.config.InputTopic, payload, task)
}

// ReadAll opens a lazy read of topic from the earliest retained offset up to
// maxOffsetInclusive.
func (h *Harness) ReadAll(ctx context.Context, topic string, maxOffsetInclusive int64, group string) (*exchange.Reader, error) {
	return h.driver.ReadAll(ctx, topic, maxOffsetInclusive, group)
}

// StopJob kills the running job and asserts the kill-path terminal status.
func (h *Harness) StopJob(ctx context.Context) error {
	h.mu.Lock()
	handle := h.handle
	h.handle = nil
	h.mu.Unlock()

	if handle == nil {
		return fmt.Errorf("no running job")
	}

	task, err := h.Task()
	if err != nil {
		return err
	}

	return h.controller.Stop(ctx, handle, task)
}

// Task returns the name of the job's single logical task. With more than one
// registered task the first by name is returned.
func (h *Harness) Task() (registry.TaskName, error) {
	names := h.registry.Names()
	if len(names) == 0 {
		return "", fmt.Errorf("no tasks registered")
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names[0], nil
}

func (h *Harness) Registry() *registry.Registry {
	return h.registry
}

func (h *Harness) Cluster() *cluster.Cluster {
	return h.cluster
}

func (h *Harness) JobConfig() job.Config {
	return h.jobCfg.Clone()
}

// Close releases every resource the harness owns. Best-effort and
// idempotent: a job still running is killed, the producer closed, the
// cluster torn down, regardless of individual step failures.
func (h *Harness) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	handle := h.handle
	h.handle = nil
	h.mu.Unlock()

	if handle != nil && !handle.Status().Terminal() {
		handle.Kill()
		if observed := handle.WaitForStatus(job.UnsuccessfulFinish, 10*time.Second); !observed.Terminal() {
			h.logger.Warn("job did not finish during close", "status", observed.String())
		}
	}

	if h.producer != nil {
		h.producer.Close()
		h.producer = nil
	}

	h.cluster.Teardown()
}

func joinAddrs(addrs []string) string {
	return strings.Join(addrs, ",")
}
