package server

import "time"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// ReadTimeout bounds reading one request. 0 means 15s.
	ReadTimeout time.Duration `json:"read_timeout,omitempty" yaml:"read_timeout"`

	// LogBodies adds request bodies to the per-request log line.
	LogBodies bool `json:"log_bodies,omitempty" yaml:"log_bodies"`
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return 15 * time.Second
	}
	return c.ReadTimeout
}
