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

package correlator_test

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/goindexer/correlator"
	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func register(t *testing.T, c *correlator.Correlator, timeout time.Duration) (uint32, <-chan correlator.Result) {
	t.Helper()
	id, resultChan, err := c.Register(
		protocol.MethodGetBlockNumber.RequestOpcode,
		protocol.MethodGetBlockNumber,
		timeout,
	)
	require.NoError(t, err)
	return id, resultChan
}

func waitResult(t *testing.T, resultChan <-chan correlator.Result) correlator.Result {
	t.Helper()
	select {
	case result := <-resultChan:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete within timeout")
	}
	return correlator.Result{}
}

func TestRequestIdsAreMonotonic(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New(correlator.WithMaxPending(0))
	defer c.Close(protocol.ErrClientClosed)
	var last uint32
	for i := range 100 {
		id, _ := register(t, c, time.Minute)
		if i == 0 {
			assert.Equal(t, uint32(1), id, "IDs start at 1")
		} else {
			assert.Greater(t, id, last)
		}
		last = id
		if i%2 == 0 {
			assert.True(t, c.Resolve(id, i))
		}
	}
}

func TestRequestIdsUniqueUnderConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New(correlator.WithMaxPending(0))
	defer c.Close(protocol.ErrClientClosed)
	var mu sync.Mutex
	seen := map[uint32]bool{}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				id, _, err := c.Register(protocol.OpcodeGetBlockNumber, protocol.MethodGetBlockNumber, time.Minute)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %d", id)
				seen[id] = true
				mu.Unlock()
				c.Resolve(id, nil)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
}

func TestResolveExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New()
	defer c.Close(protocol.ErrClientClosed)
	id, resultChan := register(t, c, time.Minute)
	method, ok := c.Method(id)
	require.True(t, ok)
	assert.Equal(t, protocol.OpcodeBlockNumber, method.ResponseOpcode)
	assert.True(t, c.Resolve(id, "first"))
	assert.False(t, c.Resolve(id, "second"))
	assert.False(t, c.Reject(id, errors.New("late")))
	result := waitResult(t, resultChan)
	assert.NoError(t, result.Err)
	assert.Equal(t, "first", result.Value)
	assert.Equal(t, 0, c.Len())
	_, ok = c.Method(id)
	assert.False(t, ok)
}

func TestRacingCompletions(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New(correlator.WithMaxPending(0))
	defer c.Close(protocol.ErrClientClosed)
	for range 50 {
		id, resultChan := register(t, c, time.Millisecond)
		var wg sync.WaitGroup
		wins := make(chan bool, 3)
		wg.Add(3)
		go func() { defer wg.Done(); wins <- c.Resolve(id, 1) }()
		go func() { defer wg.Done(); wins <- c.Reject(id, errors.New("boom")) }()
		go func() { defer wg.Done(); wins <- c.RejectAll(protocol.ErrReconnecting) > 0 }()
		wg.Wait()
		close(wins)
		// The timer may also have won, in which case none of the calls did
		count := 0
		for win := range wins {
			if win {
				count++
			}
		}
		assert.LessOrEqual(t, count, 1)
		waitResult(t, resultChan)
		select {
		case <-resultChan:
			t.Fatal("request completed twice")
		default:
		}
	}
}

func TestRequestTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New()
	defer c.Close(protocol.ErrClientClosed)
	id, resultChan := register(t, c, 20*time.Millisecond)
	result := waitResult(t, resultChan)
	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, protocol.ErrRequestTimeout))
	var protoErr *protocol.Error
	require.ErrorAs(t, result.Err, &protoErr)
	assert.Equal(t, id, protoErr.RequestId)
	assert.Equal(t, 0, c.Len())
	// A late response is dropped
	assert.False(t, c.Resolve(id, "late"))
}

func TestDefaultTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New(correlator.WithTimeout(10 * time.Millisecond))
	defer c.Close(protocol.ErrClientClosed)
	_, resultChan := register(t, c, 0)
	result := waitResult(t, resultChan)
	assert.True(t, errors.Is(result.Err, protocol.ErrRequestTimeout))
}

func TestMaxPending(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New(correlator.WithMaxPending(1))
	defer c.Close(protocol.ErrClientClosed)
	id, resultChan := register(t, c, time.Minute)
	_, _, err := c.Register(protocol.OpcodeGetBlockNumber, protocol.MethodGetBlockNumber, time.Minute)
	assert.True(t, errors.Is(err, protocol.ErrTooManyPendingRequests))
	assert.Equal(t, 1, c.Len())
	// The first request is unaffected and completes normally
	assert.True(t, c.Resolve(id, uint64(5)))
	assert.Equal(t, uint64(5), waitResult(t, resultChan).Value)
	register(t, c, time.Minute)
}

func TestMaxPendingUnbounded(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New(correlator.WithMaxPending(1))
	defer c.Close(protocol.ErrClientClosed)
	id, _ := register(t, c, time.Minute)
	// A full table does not refuse unbounded requests
	pingId, pingChan, err := c.RegisterUnbounded(protocol.OpcodePing, protocol.MethodPing, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	// and unbounded requests do not take a bounded slot
	assert.True(t, c.Resolve(id, uint64(1)))
	register(t, c, time.Minute)
	_, _, err = c.Register(protocol.OpcodeGetBlockNumber, protocol.MethodGetBlockNumber, time.Minute)
	assert.True(t, errors.Is(err, protocol.ErrTooManyPendingRequests))
	assert.True(t, c.Resolve(pingId, uint64(2)))
	assert.Equal(t, uint64(2), waitResult(t, pingChan).Value)
	_, _, err = c.Register(protocol.OpcodeGetBlockNumber, protocol.MethodGetBlockNumber, time.Minute)
	assert.True(t, errors.Is(err, protocol.ErrTooManyPendingRequests))
}

func TestRejectAll(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New()
	defer c.Close(protocol.ErrClientClosed)
	ids := make([]uint32, 0, 5)
	chans := make([]<-chan correlator.Result, 0, 5)
	for range 5 {
		id, resultChan := register(t, c, time.Minute)
		ids = append(ids, id)
		chans = append(chans, resultChan)
	}
	assert.Equal(t, 5, c.RejectAll(protocol.ErrReconnecting))
	assert.Equal(t, 0, c.Len())
	for i, resultChan := range chans {
		result := waitResult(t, resultChan)
		assert.True(t, errors.Is(result.Err, protocol.ErrReconnecting))
		var protoErr *protocol.Error
		require.ErrorAs(t, result.Err, &protoErr)
		assert.Equal(t, ids[i], protoErr.RequestId)
	}
	// Registration keeps working after a sweep
	id, _ := register(t, c, time.Minute)
	assert.Greater(t, id, ids[len(ids)-1])
}

func TestClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New()
	_, resultChan := register(t, c, time.Minute)
	assert.Equal(t, 1, c.Close(protocol.ErrClientClosed))
	assert.True(t, errors.Is(waitResult(t, resultChan).Err, protocol.ErrClientClosed))
	_, _, err := c.Register(protocol.OpcodeGetBlockNumber, protocol.MethodGetBlockNumber, time.Minute)
	assert.True(t, errors.Is(err, protocol.ErrClientClosed))
	assert.Equal(t, 0, c.Close(protocol.ErrClientClosed))
}

func TestRequestIdExhaustion(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := correlator.New(correlator.WithFirstId(math.MaxUint32))
	defer c.Close(protocol.ErrClientClosed)
	id, _ := register(t, c, time.Minute)
	assert.Equal(t, uint32(math.MaxUint32), id)
	_, _, err := c.Register(protocol.OpcodeGetBlockNumber, protocol.MethodGetBlockNumber, time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrRequestIdExhausted))
	category, _ := protocol.CategoryOf(err)
	assert.Equal(t, protocol.CategoryClient, category)
}

func TestCompleteFunc(t *testing.T) {
	defer goleak.VerifyNone(t)
	var mu sync.Mutex
	outcomes := map[string]int{}
	c := correlator.New(correlator.WithCompleteFunc(func(method protocol.Method, elapsed time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			outcomes["error"]++
		} else {
			outcomes["ok"]++
		}
	}))
	id, _ := register(t, c, time.Minute)
	c.Resolve(id, nil)
	id, _ = register(t, c, time.Minute)
	c.Reject(id, protocol.ErrInvalidAddress)
	c.Resolve(id, nil)
	c.Close(protocol.ErrClientClosed)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"ok": 1, "error": 1}, outcomes)
}
