// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package indexer

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/blinklabs-io/goindexer/protocol"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConnectTimeout        = 10 * time.Second
	DefaultRequestTimeout        = 30 * time.Second
	DefaultHandshakeTimeout      = 10 * time.Second
	DefaultPingInterval          = 30 * time.Second
	DefaultAutoReconnect         = true
	DefaultMaxReconnectAttempts  = 10
	DefaultReconnectBaseDelay    = 1 * time.Second
	DefaultReconnectMaxDelay     = 30 * time.Second
	DefaultMaxPendingRequests    = 1000
	DefaultNotificationQueueSize = 256
	DefaultMaxMessageSize        = 16 * 1024 * 1024
	DefaultClientName            = "goindexer"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the client settings. It cannot be changed once the client is built
type Config struct {
	// URL of the node socket: ws://, wss://, tcp:// or unix://
	URL string `yaml:"url"`
	// SchemaURL is the HTTP base URL of the schema endpoint. It is derived from URL for
	// WebSocket endpoints
	SchemaURL            string        `yaml:"schemaUrl"`
	ConnectTimeout       time.Duration `yaml:"connectTimeout"`
	RequestTimeout       time.Duration `yaml:"requestTimeout"`
	HandshakeTimeout     time.Duration `yaml:"handshakeTimeout"`
	PingInterval         time.Duration `yaml:"pingInterval"`
	AutoReconnect        bool          `yaml:"autoReconnect"`
	MaxReconnectAttempts int           `yaml:"maxReconnectAttempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnectBaseDelay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnectMaxDelay"`
	MaxPendingRequests   int           `yaml:"maxPendingRequests"`
	ClientName           string        `yaml:"clientName"`
	// Credentials are passed to the node as-is in the handshake
	Credentials           []byte `yaml:"-"`
	NotificationQueueSize int    `yaml:"notificationQueueSize"`
	MaxMessageSize        int    `yaml:"maxMessageSize"`
}

// ConfigOptionFunc is a function that modifies a Config
type ConfigOptionFunc func(*Config)

// NewConfig returns a Config with default values and the provided options applied
func NewConfig(options ...ConfigOptionFunc) Config {
	c := Config{
		ConnectTimeout:        DefaultConnectTimeout,
		RequestTimeout:        DefaultRequestTimeout,
		HandshakeTimeout:      DefaultHandshakeTimeout,
		PingInterval:          DefaultPingInterval,
		AutoReconnect:         DefaultAutoReconnect,
		MaxReconnectAttempts:  DefaultMaxReconnectAttempts,
		ReconnectBaseDelay:    DefaultReconnectBaseDelay,
		ReconnectMaxDelay:     DefaultReconnectMaxDelay,
		MaxPendingRequests:    DefaultMaxPendingRequests,
		ClientName:            DefaultClientName,
		NotificationQueueSize: DefaultNotificationQueueSize,
		MaxMessageSize:        DefaultMaxMessageSize,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

type configFile struct {
	Config      `yaml:",inline"`
	Credentials string `yaml:"credentials"`
}

// LoadConfig reads a YAML config file. Durations are written as strings such as "1500ms".
// Settings missing from the file keep their default values
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML config document
func ParseConfig(data []byte) (Config, error) {
	tmp := configFile{Config: NewConfig()}
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if tmp.Credentials != "" {
		tmp.Config.Credentials = []byte(tmp.Credentials)
	}
	if err := tmp.Config.Validate(); err != nil {
		return Config{}, err
	}
	return tmp.Config, nil
}

// Validate checks the config for values the client cannot work with
func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: no URL specified", ErrInvalidConfig)
	case c.ConnectTimeout <= 0:
		return fmt.Errorf("%w: connect timeout must be positive", ErrInvalidConfig)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	case c.HandshakeTimeout <= 0:
		return fmt.Errorf("%w: handshake timeout must be positive", ErrInvalidConfig)
	case c.PingInterval < 0:
		return fmt.Errorf("%w: ping interval must not be negative", ErrInvalidConfig)
	case c.AutoReconnect && c.MaxReconnectAttempts < 1:
		return fmt.Errorf("%w: at least one reconnect attempt is required", ErrInvalidConfig)
	case c.AutoReconnect && c.ReconnectBaseDelay <= 0:
		return fmt.Errorf("%w: reconnect base delay must be positive", ErrInvalidConfig)
	case c.AutoReconnect && c.ReconnectMaxDelay < c.ReconnectBaseDelay:
		return fmt.Errorf("%w: reconnect max delay is below the base delay", ErrInvalidConfig)
	case c.MaxPendingRequests < 1:
		return fmt.Errorf("%w: max pending requests must be at least 1", ErrInvalidConfig)
	case c.NotificationQueueSize < 1:
		return fmt.Errorf("%w: notification queue size must be at least 1", ErrInvalidConfig)
	case c.MaxMessageSize < protocol.HeaderSize:
		return fmt.Errorf("%w: max message size is below the frame header size", ErrInvalidConfig)
	}
	return nil
}

// WithURL specifies the node socket URL
func WithURL(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.URL = url
	}
}

// WithSchemaURL specifies the HTTP base URL of the schema endpoint
func WithSchemaURL(schemaURL string) ConfigOptionFunc {
	return func(c *Config) {
		c.SchemaURL = schemaURL
	}
}

// WithConnectTimeout specifies the timeout for opening the socket
func WithConnectTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.ConnectTimeout = timeout
	}
}

// WithRequestTimeout specifies the default timeout for a request
func WithRequestTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithHandshakeTimeout specifies how long to wait for the handshake acknowledgement
func WithHandshakeTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.HandshakeTimeout = timeout
	}
}

// WithPingInterval specifies the interval between pings. 0 disables pings
func WithPingInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.PingInterval = interval
	}
}

// WithAutoReconnect specifies whether to reconnect after losing an established connection
func WithAutoReconnect(autoReconnect bool) ConfigOptionFunc {
	return func(c *Config) {
		c.AutoReconnect = autoReconnect
	}
}

// WithMaxReconnectAttempts specifies how many reconnect attempts to make before giving up
func WithMaxReconnectAttempts(attempts int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxReconnectAttempts = attempts
	}
}

// WithReconnectDelay specifies the base and maximum delay between reconnect attempts
func WithReconnectDelay(base time.Duration, maxDelay time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.ReconnectBaseDelay = base
		c.ReconnectMaxDelay = maxDelay
	}
}

// WithMaxPendingRequests specifies the maximum number of outstanding requests
func WithMaxPendingRequests(maxPending int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxPendingRequests = maxPending
	}
}

// WithClientName specifies the client name announced in the handshake
func WithClientName(name string) ConfigOptionFunc {
	return func(c *Config) {
		c.ClientName = name
	}
}

// WithCredentials specifies opaque credentials sent in the handshake
func WithCredentials(credentials []byte) ConfigOptionFunc {
	return func(c *Config) {
		c.Credentials = credentials
	}
}

// WithNotificationQueueSize specifies how many notifications may wait for delivery
func WithNotificationQueueSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.NotificationQueueSize = size
	}
}

// WithMaxMessageSize specifies the largest frame accepted or sent
func WithMaxMessageSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxMessageSize = size
	}
}
