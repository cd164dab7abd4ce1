package harness

import (
	"time"

	"github.com/hugolhafner/streamtest/job"
	"github.com/hugolhafner/streamtest/logger"
	"github.com/hugolhafner/streamtest/registry"
)

type Config struct {
	JobName     string
	InputTopic  string
	Partitions  int32
	Replication int16

	// ExpectedTasks is the registration cardinality asserted before the
	// harness proceeds past Start.
	ExpectedTasks int

	Brokers int
	Timeout time.Duration

	// JobConfig carries caller-provided settings, passed unchanged into the
	// worker launch underneath the keys the harness injects.
	JobConfig job.Config

	Logger logger.Logger
}

func defaultHarnessConfig() Config {
	return Config{
		JobName:       "streamtest-job",
		InputTopic:    "input",
		Partitions:    1,
		Replication:   1,
		ExpectedTasks: 1,
		Brokers:       1,
		Timeout:       registry.DefaultTimeout,
		JobConfig:     job.Config{},
		Logger:        logger.NewNoopLogger(),
	}
}

type Option func(*Config)

func WithJobName(name string) Option {
	return func(c *Config) {
		c.JobName = name
	}
}

func WithInputTopic(topic string) Option {
	return func(c *Config) {
		c.InputTopic = topic
	}
}

func WithPartitions(n int32) Option {
	return func(c *Config) {
		if n > 0 {
			c.Partitions = n
		}
	}
}

func WithReplication(n int16) Option {
	return func(c *Config) {
		if n > 0 {
			c.Replication = n
		}
	}
}

func WithExpectedTasks(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ExpectedTasks = n
		}
	}
}

func WithBrokers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Brokers = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

func WithJobConfig(cfg job.Config) Option {
	return func(c *Config) {
		c.JobConfig = cfg.Clone()
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
