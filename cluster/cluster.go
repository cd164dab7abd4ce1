package cluster

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kfake"
	"go.uber.org/multierr"

	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/logger"
)

type Config struct {
	// Brokers is the number of broker instances in the embedded ensemble.
	Brokers int

	Logger logger.Logger
}

type Option func(*Config)

func WithBrokers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Brokers = n
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l.With("component", "cluster")
	}
}

func defaultConfig() Config {
	return Config{
		Brokers: 1,
		Logger:  logger.NewNoopLogger(),
	}
}

// Cluster owns the embedded broker ensemble, the per-broker state
// directories, and the admin client. It is the single owner of this
// infrastructure: other components borrow references but never extend its
// lifetime.
type Cluster struct {
	config Config
	logger logger.Logger

	mu        sync.Mutex
	started   bool
	brokers   *kfake.Cluster
	addrs     []string
	stateRoot string
	stateDirs []string
	admin     kafka.Admin
}

func New(opts ...Option) *Cluster {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Cluster{config: cfg, logger: cfg.Logger}
}

// Start boots the broker ensemble and allocates the state directories under a
// process-unique ephemeral root. Calling Start twice without a Teardown in
// between is a programming error and panics.
func (c *Cluster) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		panic("cluster: Start called twice without Teardown")
	}

	stateRoot := filepath.Join(os.TempDir(), "streamtest-"+uuid.NewString())
	if err := os.MkdirAll(stateRoot, 0o755); err != nil {
		return fmt.Errorf("create state root: %w", err)
	}

	stateDirs := make([]string, 0, c.config.Brokers)
	for i := 0; i < c.config.Brokers; i++ {
		dir := filepath.Join(stateRoot, fmt.Sprintf("broker-%d", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = os.RemoveAll(stateRoot)
			return fmt.Errorf("create broker state dir: %w", err)
		}
		stateDirs = append(stateDirs, dir)
	}

	brokers, err := kfake.NewCluster(
		kfake.NumBrokers(c.config.Brokers),
	)
	if err != nil {
		_ = os.RemoveAll(stateRoot)
		return fmt.Errorf("start embedded brokers: %w", err)
	}

	c.brokers = brokers
	c.addrs = brokers.ListenAddrs()
	c.stateRoot = stateRoot
	c.stateDirs = stateDirs
	c.started = true

	c.logger.Info("embedded cluster started", "brokers", c.config.Brokers, "addrs", c.addrs, "stateRoot", stateRoot)

	return nil
}

// BrokerAddrs returns the broker address list derived at startup.
func (c *Cluster) BrokerAddrs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string{}, c.addrs...)
}

// StateRoot returns the process-unique root under which all on-disk state for
// this run lives.
func (c *Cluster) StateRoot() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateRoot
}

// Admin returns an admin client bound to the broker address list, creating it
// on first use.
func (c *Cluster) Admin() (kafka.Admin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil, fmt.Errorf("cluster not started")
	}

	if c.admin == nil {
		admin, err := kafka.NewKadmAdmin(c.addrs, c.logger)
		if err != nil {
			return nil, err
		}
		c.admin = admin
	}

	return c.admin, nil
}

// Teardown releases everything the cluster owns: brokers first, then their
// on-disk state, then the admin client. Each step is independently guarded;
// failures are logged and swallowed since teardown also runs on failure paths
// and must not mask the original failure or block later steps.
func (c *Cluster) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	var errs error

	if c.brokers != nil {
		errs = multierr.Append(errs, c.guard("stop brokers", func() error {
			c.brokers.Close()
			return nil
		}))
		c.brokers = nil
	}

	for _, dir := range c.stateDirs {
		dir := dir
		errs = multierr.Append(errs, c.guard("remove broker state", func() error {
			return os.RemoveAll(dir)
		}))
	}

	errs = multierr.Append(errs, c.guard("remove state root", func() error {
		return os.RemoveAll(c.stateRoot)
	}))

	if c.admin != nil {
		errs = multierr.Append(errs, c.guard("close admin client", func() error {
			c.admin.Close()
			return nil
		}))
		c.admin = nil
	}

	c.started = false
	c.addrs = nil
	c.stateDirs = nil
	c.stateRoot = ""

	if errs != nil {
		c.logger.Warn("teardown finished with errors", "errors", errs.Error())
		return
	}

	c.logger.Info("teardown complete")
}

// guard runs one teardown step, converting panics into logged errors so the
// remaining steps still run.
func (c *Cluster) guard(step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", step, r)
		}
		if err != nil {
			c.logger.Warn("teardown step failed", "step", step, "error", err)
		}
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}

	return nil
}
