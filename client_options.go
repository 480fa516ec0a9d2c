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
	"log/slog"

	"github.com/blinklabs-io/goindexer/schema"
	"github.com/blinklabs-io/goindexer/transport"
	"github.com/prometheus/client_golang/prometheus"
)

// ClientOptionFunc is a type that represents functions that modify the Client
type ClientOptionFunc func(*Client)

// WithConfig specifies the client config. See NewConfig
func WithConfig(cfg Config) ClientOptionFunc {
	return func(c *Client) {
		c.config = cfg
	}
}

// WithLogger specifies the logger. The default is slog.Default()
func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialer specifies the dialer used to open the socket. The default is picked from the
// URL scheme
func WithDialer(dialer transport.Dialer) ClientOptionFunc {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithCodec specifies the payload codec, which skips fetching the schema from the node
func WithCodec(codec *schema.Codec) ClientOptionFunc {
	return func(c *Client) {
		c.codec = codec
	}
}

// WithSchemaRegistry specifies the registry used to fetch and cache schemas. Clients that
// share a registry share its cache
func WithSchemaRegistry(registry *schema.Registry) ClientOptionFunc {
	return func(c *Client) {
		c.schemaRegistry = registry
	}
}

// WithMetricsRegisterer specifies where to register the client metrics. Metrics are not
// registered anywhere by default
func WithMetricsRegisterer(registerer prometheus.Registerer) ClientOptionFunc {
	return func(c *Client) {
		c.metricsRegisterer = registerer
	}
}

// WithErrorChan specifies the channel for asynchronous errors. If none is provided, one
// will be created
func WithErrorChan(errorChan chan error) ClientOptionFunc {
	return func(c *Client) {
		c.errorChan = errorChan
	}
}
