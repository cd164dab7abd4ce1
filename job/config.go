package job

// Config is an opaque string-to-string job configuration passed unchanged
// into the worker launch. The harness recognizes no keys except the ones it
// injects itself.
type Config map[string]string

// Keys the harness injects before launch. Everything else is owned by the
// test author and the worker under test.
const (
	KeyJobName          = "job.name"
	KeyInputTopic       = "task.inputs"
	KeyBootstrapServers = "systems.kafka.bootstrap.servers"
	KeyStateDir         = "job.state.dir"
)

func (c Config) Clone() Config {
	cloned := make(Config, len(c))
	for k, v := range c {
		cloned[k] = v
	}

	return cloned
}

// Merge returns a copy of c with overrides applied on top.
func (c Config) Merge(overrides Config) Config {
	merged := c.Clone()
	for k, v := range overrides {
		merged[k] = v
	}

	return merged
}
