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

package frame_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/goindexer/frame"
	"github.com/blinklabs-io/goindexer/internal/test"
	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameBytes(t *testing.T) {
	f := frame.New(protocol.OpcodeGetBlockNumber, 0x01020304, []byte{0xaa, 0xbb})
	assert.Equal(
		t,
		[]byte{0x10, 0x01, 0x02, 0x03, 0x04, 0xaa, 0xbb},
		f.Bytes(),
	)
	decoded, err := frame.Decode(f.Bytes())
	require.NoError(t, err)
	assert.Equal(t, f, decoded)
}

func TestCodecWireVectors(t *testing.T) {
	codec := frame.NewCodec(schema.Builtin(), 0)
	testDefs := []struct {
		opcode    protocol.Opcode
		requestId uint32
		typeName  string
		value     any
		wireHex   string
	}{
		{
			opcode:    protocol.OpcodePing,
			requestId: 1,
			typeName:  protocol.TypePing,
			value:     schema.Record{"timestamp": uint64(5)},
			wireHex:   "00 00000001 8105",
		},
		{
			opcode:    protocol.OpcodeGetBlockNumber,
			requestId: 0x0100,
			typeName:  protocol.TypeEmpty,
			wireHex:   "10 00000100 80",
		},
		{
			opcode:    protocol.OpcodeError,
			requestId: 7,
			typeName:  protocol.TypeErrorResponse,
			value:     schema.Record{"code": uint64(3003), "message": "bad"},
			wireHex:   "80 00000007 82190bbb63626164",
		},
		{
			opcode:    protocol.OpcodeSubscribeBlocks,
			requestId: 2,
			typeName:  protocol.TypeSubscribeRequest,
			value:     schema.Record{},
			wireHex:   "70 00000002 81f6",
		},
	}
	for _, testDef := range testDefs {
		data, err := codec.Encode(testDef.opcode, testDef.requestId, testDef.typeName, testDef.value)
		require.NoError(t, err)
		assert.Equal(t, test.DecodeHexString(testDef.wireHex), data, testDef.opcode.String())
		f, err := codec.Decode(test.DecodeHexString(testDef.wireHex))
		require.NoError(t, err)
		assert.Equal(t, testDef.opcode, f.Opcode)
		assert.Equal(t, testDef.requestId, f.RequestId)
	}
}

func TestDecodeShortFrame(t *testing.T) {
	for size := range protocol.HeaderSize {
		_, err := frame.Decode(make([]byte, size))
		require.Error(t, err, "size %d", size)
		assert.True(t, errors.Is(err, protocol.ErrMalformedMessage))
	}
	f, err := frame.Decode([]byte{0x81, 0, 0, 0, 9})
	require.NoError(t, err)
	assert.Equal(t, protocol.OpcodePong, f.Opcode)
	assert.Equal(t, uint32(9), f.RequestId)
	assert.Empty(t, f.Payload)
}

func TestCodecRoundTrip(t *testing.T) {
	codec := frame.NewCodec(schema.Builtin(), 0)
	testDefs := []struct {
		opcode    protocol.Opcode
		requestId uint32
		typeName  string
		value     any
	}{
		{protocol.OpcodeGetBlockNumber, 1, protocol.TypeEmpty, schema.Record{}},
		{protocol.OpcodeBlockNumber, 1, "BlockNumber", schema.Record{"number": uint64(77)}},
		{protocol.OpcodeGetBalance, 0xffffffff, protocol.TypeAddressRequest, schema.Record{"address": "addr1"}},
		{protocol.OpcodeError, 12, protocol.TypeErrorResponse, schema.Record{"code": uint64(3003), "message": "Invalid address format"}},
		{protocol.OpcodeSubscribeBlocks, 3, protocol.TypeSubscribeRequest, schema.Record{"filter": []byte{0x01, 0x02}}},
	}
	for _, testDef := range testDefs {
		data, err := codec.Encode(testDef.opcode, testDef.requestId, testDef.typeName, testDef.value)
		require.NoError(t, err)
		f, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, testDef.opcode, f.Opcode)
		assert.Equal(t, testDef.requestId, f.RequestId)
		value, err := codec.DecodePayload(testDef.typeName, f)
		require.NoError(t, err)
		assert.Equal(t, testDef.value, value)
	}
}

func TestCodecMessageSize(t *testing.T) {
	codec := frame.NewCodec(schema.Builtin(), 16)
	_, err := codec.Encode(
		protocol.OpcodeSubmitTransaction,
		1,
		"SubmitTransactionRequest",
		schema.Record{"body": make([]byte, 64)},
	)
	assert.True(t, errors.Is(err, protocol.ErrMessageTooLarge))
	_, err = codec.Decode(make([]byte, 17))
	assert.True(t, errors.Is(err, protocol.ErrMessageTooLarge))
}

func TestCodecPayloadErrors(t *testing.T) {
	codec := frame.NewCodec(schema.Builtin(), 0)
	_, err := codec.Encode(protocol.OpcodeGetBlockByNumber, 1, protocol.TypeBlockByNumberRequest, schema.Record{})
	assert.Error(t, err)
	f := frame.New(protocol.OpcodeBlockNumber, 5, []byte{0xff})
	_, err = codec.DecodePayload("BlockNumber", f)
	assert.True(t, errors.Is(err, protocol.ErrMalformedMessage))
	var protoErr *protocol.Error
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, uint32(5), protoErr.RequestId)
}
