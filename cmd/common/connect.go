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

package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	indexer "github.com/blinklabs-io/goindexer"
	"github.com/blinklabs-io/goindexer/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CreateClient builds a client from the command line and connects it
func CreateClient(ctx context.Context, f *GlobalFlags) *indexer.Client {
	cfg := indexer.NewConfig()
	if f.ConfigFile != "" {
		var err error
		cfg, err = indexer.LoadConfig(f.ConfigFile)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
	}
	if f.URL != "" {
		cfg.URL = f.URL
	}
	if f.SchemaURL != "" {
		cfg.SchemaURL = f.SchemaURL
	}
	if f.Credentials != "" {
		cfg.Credentials = []byte(f.Credentials)
	}
	if f.RequestTimeout > 0 {
		cfg.RequestTimeout = f.RequestTimeout
	}
	logger := f.Logger()
	errorChan := make(chan error, 10)
	go func() {
		for err := range errorChan {
			fmt.Printf("ERROR(async): %s\n", err)
			if errors.Is(err, indexer.ErrReconnectAttemptsExhausted) {
				os.Exit(1)
			}
		}
	}()
	opts := []indexer.ClientOptionFunc{
		indexer.WithConfig(cfg),
		indexer.WithLogger(logger),
		indexer.WithErrorChan(errorChan),
	}
	if f.BuiltinSchema {
		opts = append(opts, indexer.WithCodec(schema.Builtin()))
	}
	if f.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, indexer.WithMetricsRegisterer(registry))
		serveMetrics(f.MetricsAddr, registry)
	}
	client, err := indexer.NewClient(opts...)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	if err := client.Connect(ctx); err != nil {
		fmt.Printf("Connection failed: %s\n", err)
		os.Exit(1)
	}
	return client
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("ERROR: metrics server: %s\n", err)
		}
	}()
}
