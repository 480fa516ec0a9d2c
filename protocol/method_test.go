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

package protocol_test

import (
	"testing"

	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodOpcodesUnique(t *testing.T) {
	requests := map[protocol.Opcode]string{}
	responses := map[protocol.Opcode]string{}
	for _, method := range protocol.Methods {
		assert.True(t, method.RequestOpcode.IsRequest(), method.Name)
		assert.True(t, method.ResponseOpcode.IsResponse(), method.Name)
		if other, ok := requests[method.RequestOpcode]; ok {
			t.Errorf("request opcode %s shared by %s and %s", method.RequestOpcode, other, method.Name)
		}
		if other, ok := responses[method.ResponseOpcode]; ok {
			t.Errorf("response opcode %s shared by %s and %s", method.ResponseOpcode, other, method.Name)
		}
		requests[method.RequestOpcode] = method.Name
		responses[method.ResponseOpcode] = method.Name
	}
	for _, topic := range protocol.Topics {
		_, ok := responses[topic.NotificationOpcode]
		assert.False(t, ok, "notification opcode %s collides", topic.NotificationOpcode)
	}
}

func TestMethodLookups(t *testing.T) {
	for _, method := range protocol.Methods {
		byReq, ok := protocol.MethodByRequestOpcode(method.RequestOpcode)
		require.True(t, ok, method.Name)
		assert.Equal(t, method, byReq)
		byResp, ok := protocol.MethodByResponseOpcode(method.ResponseOpcode)
		require.True(t, ok, method.Name)
		assert.Equal(t, method, byResp)
	}
	_, ok := protocol.MethodByRequestOpcode(0x7e)
	assert.False(t, ok)
	_, ok = protocol.MethodByResponseOpcode(protocol.OpcodeError)
	assert.False(t, ok)
}

func TestMethodCatalogValues(t *testing.T) {
	assert.Equal(t, protocol.Opcode(0x10), protocol.MethodGetBlockNumber.RequestOpcode)
	assert.Equal(t, protocol.Opcode(0x90), protocol.MethodGetBlockNumber.ResponseOpcode)
	assert.Equal(t, protocol.Opcode(0x82), protocol.MethodHandshake.ResponseOpcode)
	assert.Equal(t, protocol.Opcode(0x81), protocol.MethodPing.ResponseOpcode)
	assert.Equal(t, protocol.Opcode(0x7f), protocol.MethodUnsubscribe.RequestOpcode)
	assert.Equal(t, protocol.Opcode(0xff), protocol.MethodUnsubscribe.ResponseOpcode)
	assert.Equal(t, "GetBalance", protocol.MethodGetBalance.String())
}

func TestTopics(t *testing.T) {
	testDefs := []struct {
		opcode    protocol.Opcode
		topic     protocol.Topic
		subscribe protocol.Method
	}{
		{protocol.OpcodeNewBlockNotification, protocol.TopicBlocks, protocol.MethodSubscribeBlocks},
		{protocol.OpcodeNewEpochNotification, protocol.TopicEpochs, protocol.MethodSubscribeEpochs},
		{protocol.OpcodeNewMempoolTxNotification, protocol.TopicMempool, protocol.MethodSubscribeMempool},
	}
	for _, testDef := range testDefs {
		assert.True(t, protocol.IsNotification(testDef.opcode))
		mapping, ok := protocol.TopicByNotificationOpcode(testDef.opcode)
		require.True(t, ok)
		assert.Equal(t, testDef.topic, mapping.Topic)
		assert.Equal(t, testDef.subscribe, mapping.Subscribe)
		byTopic, ok := protocol.LookupTopic(testDef.topic)
		require.True(t, ok)
		assert.Equal(t, mapping, byTopic)
	}
	assert.False(t, protocol.IsNotification(protocol.OpcodeBlock))
	assert.Equal(t, "MEMPOOL", protocol.TopicMempool.String())
}

func TestOpcodeRanges(t *testing.T) {
	assert.True(t, protocol.OpcodePing.IsRequest())
	assert.False(t, protocol.OpcodePing.IsResponse())
	assert.True(t, protocol.OpcodeError.IsResponse())
	assert.Equal(t, "GET_BLOCK_NUMBER", protocol.OpcodeGetBlockNumber.String())
}
