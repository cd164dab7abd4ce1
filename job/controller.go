package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hugolhafner/streamtest/logger"
	"github.com/hugolhafner/streamtest/registry"
)

// LifecycleTimeout bounds every lifecycle wait. Exceeding it is fatal to the
// test and never retried; unlike topic metadata convergence a lifecycle
// timeout signals a genuine defect in the worker under test.
const LifecycleTimeout = 60 * time.Second

// Provisioner prepares broker-side resources a job depends on. Provisioning
// runs as a precondition of Start, before the worker launches.
type Provisioner interface {
	Provision(ctx context.Context, cfg Config) error
}

type ProvisionerFunc func(ctx context.Context, cfg Config) error

func (f ProvisionerFunc) Provision(ctx context.Context, cfg Config) error {
	return f(ctx, cfg)
}

// Controller drives one worker through the kill path of its lifecycle.
type Controller struct {
	runner      Runner
	registry    *registry.Registry
	provisioner Provisioner
	timeout     time.Duration
	logger      logger.Logger
}

type ControllerOption func(*Controller)

func WithProvisioner(p Provisioner) ControllerOption {
	return func(c *Controller) {
		c.provisioner = p
	}
}

func WithTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l.With("component", "job")
	}
}

func NewController(runner Runner, reg *registry.Registry, opts ...ControllerOption) *Controller {
	c := &Controller{
		runner:   runner,
		registry: reg,
		timeout:  LifecycleTimeout,
		logger:   logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start provisions the job's resources, launches the worker, and blocks until
// the job reaches Running. Observing any other status at the end of the wait
// is a hard failure.
func (c *Controller) Start(ctx context.Context, cfg Config) (Handle, error) {
	if c.provisioner != nil {
		if err := c.provisioner.Provision(ctx, cfg); err != nil {
			return nil, fmt.Errorf("provision job resources: %w", err)
		}
	}

	c.logger.Info("launching job", "name", cfg[KeyJobName])

	handle, err := c.runner.Launch(cfg)
	if err != nil {
		return nil, fmt.Errorf("launch job: %w", err)
	}

	observed := handle.WaitForStatus(Running, c.timeout)
	if observed != Running {
		return nil, fmt.Errorf(
			"job did not reach %s within %v, observed %s", Running, c.timeout, observed,
		)
	}

	c.logger.Info("job running", "name", cfg[KeyJobName])

	return handle, nil
}

// Stop kills the job and asserts the kill-path terminal status. It first
// waits for the named task's first processed event, so a job that has not
// begun consuming is never killed (a kill before the first event would make
// delivery assertions pass vacuously).
func (c *Controller) Stop(ctx context.Context, handle Handle, task registry.TaskName) error {
	if err := c.registry.AwaitFirstEventProcessed(task, c.timeout); err != nil {
		return fmt.Errorf("job never began processing: %w", err)
	}

	c.logger.Info("killing job", "task", string(task))
	handle.Kill()

	observed := handle.WaitForStatus(UnsuccessfulFinish, c.timeout)
	switch observed {
	case UnsuccessfulFinish:
		return nil
	case SuccessfulFinish:
		// A kill is an interrupt; finishing cleanly afterwards violates the
		// lifecycle contract.
		return fmt.Errorf("job finished with %s after kill, want %s", observed, UnsuccessfulFinish)
	default:
		return fmt.Errorf(
			"job did not finish within %v after kill, observed %s, want %s",
			c.timeout, observed, UnsuccessfulFinish,
		)
	}
}
