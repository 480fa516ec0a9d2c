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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectBackoffWithoutJitter(t *testing.T) {
	delays := newReconnectBackoff(time.Second, 30*time.Second, 0)
	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for idx, want := range expected {
		assert.Equal(t, want, delays.Next(), "attempt %d", idx)
	}
}

func TestReconnectBackoffJitter(t *testing.T) {
	for range 100 {
		delays := newReconnectBackoff(100*time.Millisecond, 3*time.Second, reconnectJitter)
		var last time.Duration
		for attempt := range 12 {
			delay := delays.Next()
			nominal := min(100*time.Millisecond<<attempt, 3*time.Second)
			assert.GreaterOrEqual(t, delay, nominal)
			assert.GreaterOrEqual(t, delay, last)
			assert.LessOrEqual(t, delay, 3*time.Second)
			last = delay
		}
	}
}
