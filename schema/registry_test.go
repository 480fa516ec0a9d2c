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

package schema_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/goindexer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchemaServer(t *testing.T, delay time.Duration) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != schema.SchemaPath {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(schema.BuiltinDocument())
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestRegistryLoadCaches(t *testing.T) {
	server, hits := newSchemaServer(t, 0)
	registry := schema.NewRegistry()
	codec, err := registry.Load(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, codec.Document().Has("Block"))
	again, err := registry.Load(context.Background(), server.URL+"/")
	require.NoError(t, err)
	assert.Same(t, codec, again)
	assert.Equal(t, int32(1), hits.Load())
	cached, ok := registry.Cached(server.URL)
	assert.True(t, ok)
	assert.Same(t, codec, cached)
}

func TestRegistryConcurrentLoadsShareFetch(t *testing.T) {
	server, hits := newSchemaServer(t, 50*time.Millisecond)
	registry := schema.NewRegistry()
	var wg sync.WaitGroup
	codecs := make([]*schema.Codec, 8)
	for i := range codecs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codec, err := registry.Load(context.Background(), server.URL)
			assert.NoError(t, err)
			codecs[i] = codec
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())
	for _, codec := range codecs {
		assert.Same(t, codecs[0], codec)
	}
}

func TestRegistriesAreIsolated(t *testing.T) {
	server, hits := newSchemaServer(t, 0)
	_, err := schema.NewRegistry().Load(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = schema.NewRegistry().Load(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRegistryFetchErrors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()
	registry := schema.NewRegistry()
	_, err := registry.Load(context.Background(), notFound.URL)
	assert.True(t, errors.Is(err, schema.ErrFetchFailed), err)
	_, ok := registry.Cached(notFound.URL)
	assert.False(t, ok, "failures are not cached")

	invalid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("types: {}"))
	}))
	defer invalid.Close()
	_, err = registry.Load(context.Background(), invalid.URL)
	assert.True(t, errors.Is(err, schema.ErrInvalidDocument), err)

	large := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(schema.BuiltinDocument())
	}))
	defer large.Close()
	_, err = schema.NewRegistry(schema.WithMaxDocumentSize(16)).Load(context.Background(), large.URL)
	assert.True(t, errors.Is(err, schema.ErrFetchFailed), err)
}

func TestRegistryLoadContextCancel(t *testing.T) {
	server, _ := newSchemaServer(t, 200*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := schema.NewRegistry().Load(ctx, server.URL)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err)
}

func TestBaseURL(t *testing.T) {
	testDefs := []struct {
		socketURL string
		baseURL   string
	}{
		{"ws://node.example:8080/ws", "http://node.example:8080"},
		{"wss://node.example/socket?token=x", "https://node.example"},
		{"http://localhost:3000", "http://localhost:3000"},
	}
	for _, testDef := range testDefs {
		baseURL, err := schema.BaseURL(testDef.socketURL)
		require.NoError(t, err)
		assert.Equal(t, testDef.baseURL, baseURL)
	}
	_, err := schema.BaseURL("tcp://127.0.0.1:9000")
	assert.True(t, errors.Is(err, schema.ErrNoSchemaURL))
	_, err = schema.BaseURL("unix:///tmp/node.sock")
	assert.True(t, errors.Is(err, schema.ErrNoSchemaURL))
}
