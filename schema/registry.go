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

package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// SchemaPath is the path of the schema document relative to the node base URL
	SchemaPath = "/schema"

	DefaultFetchTimeout    = 10 * time.Second
	DefaultMaxDocumentSize = 4 * 1024 * 1024
)

var (
	ErrNoSchemaURL = errors.New("no schema URL can be derived from the socket URL")
	ErrFetchFailed = errors.New("schema fetch failed")
)

// Registry fetches schema documents and caches one codec per base URL for its lifetime.
// Concurrent loads of the same base URL share a single fetch
type Registry struct {
	httpClient      *http.Client
	logger          *slog.Logger
	fetchTimeout    time.Duration
	maxDocumentSize int64
	mu              sync.Mutex
	cache           map[string]*Codec
	group           singleflight.Group
}

type RegistryOptionFunc func(*Registry)

// NewRegistry returns an empty schema registry
func NewRegistry(opts ...RegistryOptionFunc) *Registry {
	r := &Registry{
		httpClient:      http.DefaultClient,
		logger:          slog.Default(),
		fetchTimeout:    DefaultFetchTimeout,
		maxDocumentSize: DefaultMaxDocumentSize,
		cache:           make(map[string]*Codec),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithHTTPClient specifies the HTTP client used to fetch documents
func WithHTTPClient(httpClient *http.Client) RegistryOptionFunc {
	return func(r *Registry) {
		r.httpClient = httpClient
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) RegistryOptionFunc {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithFetchTimeout specifies the timeout for a single document fetch
func WithFetchTimeout(timeout time.Duration) RegistryOptionFunc {
	return func(r *Registry) {
		r.fetchTimeout = timeout
	}
}

// WithMaxDocumentSize specifies the largest document accepted from a node
func WithMaxDocumentSize(size int64) RegistryOptionFunc {
	return func(r *Registry) {
		r.maxDocumentSize = size
	}
}

// BaseURL derives the HTTP base URL of a node from its socket URL
func BaseURL(socketURL string) (string, error) {
	u, err := url.Parse(socketURL)
	if err != nil {
		return "", fmt.Errorf("parse socket URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "http":
		u.Scheme = "http"
	case "wss", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrNoSchemaURL, u.Scheme)
	}
	// The socket endpoint path is not part of the node base URL
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Cached returns the cached codec for the base URL, if any
func (r *Registry) Cached(baseURL string) (*Codec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codec, ok := r.cache[normalizeBaseURL(baseURL)]
	return codec, ok
}

// Store adds a codec to the cache for the base URL
func (r *Registry) Store(baseURL string, codec *Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[normalizeBaseURL(baseURL)] = codec
}

// Load returns the codec for the base URL, fetching the document on first use
func (r *Registry) Load(ctx context.Context, baseURL string) (*Codec, error) {
	baseURL = normalizeBaseURL(baseURL)
	if codec, ok := r.Cached(baseURL); ok {
		return codec, nil
	}
	resultChan := r.group.DoChan(baseURL, func() (any, error) {
		// Another caller may have completed a fetch between the cache check and here
		if codec, ok := r.Cached(baseURL); ok {
			return codec, nil
		}
		// The fetch is shared, so it must not be bound to a single caller's cancellation
		fetchCtx, cancel := context.WithTimeout(
			context.WithoutCancel(ctx),
			r.fetchTimeout,
		)
		defer cancel()
		codec, err := r.fetch(fetchCtx, baseURL)
		if err != nil {
			return nil, err
		}
		r.Store(baseURL, codec)
		return codec, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*Codec), nil
	}
}

func (r *Registry) fetch(ctx context.Context, baseURL string) (*Codec, error) {
	schemaURL := baseURL + SchemaPath
	r.logger.Debug(
		"fetching schema document",
		"component", "schema",
		"url", schemaURL,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, schemaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"%w: %s returned status %d",
			ErrFetchFailed,
			schemaURL,
			resp.StatusCode,
		)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if int64(len(data)) > r.maxDocumentSize {
		return nil, fmt.Errorf(
			"%w: document exceeds %d bytes",
			ErrFetchFailed,
			r.maxDocumentSize,
		)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	r.logger.Info(
		"loaded schema document",
		"component", "schema",
		"url", schemaURL,
		"version", doc.Version,
		"types", len(doc.Types),
	)
	return NewCodec(doc), nil
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/")
}
