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

package cbor_test

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/blinklabs-io/goindexer/cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValue(t *testing.T) {
	// [1, -2, h'abcd', "foo", null]
	data, err := hex.DecodeString("850121" + "42abcd" + "63666f6f" + "f6")
	require.NoError(t, err)
	val, err := cbor.DecodeValue(data)
	require.NoError(t, err)
	assert.Equal(
		t,
		[]any{uint64(1), int64(-2), []byte{0xab, 0xcd}, "foo", nil},
		val,
	)
}

func TestDecodeExactTrailingData(t *testing.T) {
	// Two items back to back
	data := []byte{0x01, 0x02}
	var tmp uint64
	err := cbor.DecodeExact(data, &tmp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cbor.ErrTrailingData))
	n, err := cbor.Decode(data, &tmp)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(1), tmp)
}
