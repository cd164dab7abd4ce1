package mockkafka

type Option func(*Client)

// WithSendError injects a producer-side failure.
func WithSendError(fn func(topic string, key, value []byte) error) Option {
	return func(c *Client) {
		c.sendErr = fn
	}
}

// WithPollError injects a consumer-side failure.
func WithPollError(fn func() error) Option {
	return func(c *Client) {
		c.pollErr = fn
	}
}

// WithOnSend registers a hook invoked after each successful Send.
func WithOnSend(fn func(ProducedRecord)) Option {
	return func(c *Client) {
		c.onSend = fn
	}
}
