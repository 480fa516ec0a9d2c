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

package protocol

import "fmt"

// Method describes a logical operation and how it maps onto the wire. Every operation the
// client exposes is one of the Method values below, so there is no lookup that can fail
// between a logical method and its opcodes
type Method struct {
	Name           string
	RequestOpcode  Opcode
	ResponseOpcode Opcode
	RequestType    string
	ResponseType   string
}

func (m Method) String() string {
	return m.Name
}

// Schema type names shared by several methods
const (
	TypeEmpty                   = "Empty"
	TypeErrorResponse           = "ErrorResponse"
	TypeSubscribeRequest        = "SubscribeRequest"
	TypeSubscribeConfirmation   = "SubscribeConfirmation"
	TypeTransactionList         = "TransactionList"
	TypeBlock                   = "Block"
	TypeEpoch                   = "Epoch"
	TypeAddressRequest          = "AddressRequest"
	TypeBlockByNumberRequest    = "BlockByNumberRequest"
	TypeBlockNotification       = "BlockNotification"
	TypeEpochNotification       = "EpochNotification"
	TypeMempoolTxNotification   = "MempoolTxNotification"
	TypeHandshakeRequest        = "HandshakeRequest"
	TypeHandshakeAck            = "HandshakeAck"
	TypePing                    = "Ping"
	TypePong                    = "Pong"
	TypeUnsubscribeRequest      = "UnsubscribeRequest"
	TypeUnsubscribeConfirmation = "UnsubscribeConfirmation"
)

var (
	MethodPing = Method{
		Name:           "Ping",
		RequestOpcode:  OpcodePing,
		ResponseOpcode: OpcodePong,
		RequestType:    TypePing,
		ResponseType:   TypePong,
	}
	MethodHandshake = Method{
		Name:           "Handshake",
		RequestOpcode:  OpcodeHandshake,
		ResponseOpcode: OpcodeHandshakeAck,
		RequestType:    TypeHandshakeRequest,
		ResponseType:   TypeHandshakeAck,
	}
	MethodGetBlockNumber = Method{
		Name:           "GetBlockNumber",
		RequestOpcode:  OpcodeGetBlockNumber,
		ResponseOpcode: OpcodeBlockNumber,
		RequestType:    TypeEmpty,
		ResponseType:   "BlockNumber",
	}
	MethodGetBlockByNumber = Method{
		Name:           "GetBlockByNumber",
		RequestOpcode:  OpcodeGetBlockByNumber,
		ResponseOpcode: OpcodeBlock,
		RequestType:    TypeBlockByNumberRequest,
		ResponseType:   TypeBlock,
	}
	MethodGetBlockByHash = Method{
		Name:           "GetBlockByHash",
		RequestOpcode:  OpcodeGetBlockByHash,
		ResponseOpcode: OpcodeBlockByHash,
		RequestType:    "BlockByHashRequest",
		ResponseType:   TypeBlock,
	}
	MethodGetBlockTransactions = Method{
		Name:           "GetBlockTransactions",
		RequestOpcode:  OpcodeGetBlockTransactions,
		ResponseOpcode: OpcodeBlockTransactions,
		RequestType:    TypeBlockByNumberRequest,
		ResponseType:   TypeTransactionList,
	}
	MethodGetTransaction = Method{
		Name:           "GetTransaction",
		RequestOpcode:  OpcodeGetTransaction,
		ResponseOpcode: OpcodeTransaction,
		RequestType:    "TransactionRequest",
		ResponseType:   "Transaction",
	}
	MethodSubmitTransaction = Method{
		Name:           "SubmitTransaction",
		RequestOpcode:  OpcodeSubmitTransaction,
		ResponseOpcode: OpcodeSubmitTransactionResult,
		RequestType:    "SubmitTransactionRequest",
		ResponseType:   "SubmitTransactionResult",
	}
	MethodGetMempool = Method{
		Name:           "GetMempool",
		RequestOpcode:  OpcodeGetMempool,
		ResponseOpcode: OpcodeMempool,
		RequestType:    TypeEmpty,
		ResponseType:   TypeTransactionList,
	}
	MethodGetEpoch = Method{
		Name:           "GetEpoch",
		RequestOpcode:  OpcodeGetEpoch,
		ResponseOpcode: OpcodeEpoch,
		RequestType:    "EpochRequest",
		ResponseType:   TypeEpoch,
	}
	MethodGetCurrentEpoch = Method{
		Name:           "GetCurrentEpoch",
		RequestOpcode:  OpcodeGetCurrentEpoch,
		ResponseOpcode: OpcodeCurrentEpoch,
		RequestType:    TypeEmpty,
		ResponseType:   TypeEpoch,
	}
	MethodGetBalance = Method{
		Name:           "GetBalance",
		RequestOpcode:  OpcodeGetBalance,
		ResponseOpcode: OpcodeBalance,
		RequestType:    TypeAddressRequest,
		ResponseType:   "Balance",
	}
	MethodGetUtxos = Method{
		Name:           "GetUtxos",
		RequestOpcode:  OpcodeGetUtxos,
		ResponseOpcode: OpcodeUtxos,
		RequestType:    TypeAddressRequest,
		ResponseType:   "UtxoList",
	}
	MethodGetAddressTransactions = Method{
		Name:           "GetAddressTransactions",
		RequestOpcode:  OpcodeGetAddressTransactions,
		ResponseOpcode: OpcodeAddressTransactions,
		RequestType:    "AddressRangeRequest",
		ResponseType:   TypeTransactionList,
	}
	MethodGetContract = Method{
		Name:           "GetContract",
		RequestOpcode:  OpcodeGetContract,
		ResponseOpcode: OpcodeContract,
		RequestType:    TypeAddressRequest,
		ResponseType:   "Contract",
	}
	MethodGetContractState = Method{
		Name:           "GetContractState",
		RequestOpcode:  OpcodeGetContractState,
		ResponseOpcode: OpcodeContractState,
		RequestType:    "ContractStateRequest",
		ResponseType:   "ContractState",
	}
	MethodCall = Method{
		Name:           "Call",
		RequestOpcode:  OpcodeCall,
		ResponseOpcode: OpcodeCallResult,
		RequestType:    "ContractCallRequest",
		ResponseType:   "ContractCallResult",
	}
	MethodGetNodeInfo = Method{
		Name:           "GetNodeInfo",
		RequestOpcode:  OpcodeGetNodeInfo,
		ResponseOpcode: OpcodeNodeInfo,
		RequestType:    TypeEmpty,
		ResponseType:   "NodeInfo",
	}
	MethodGetSyncStatus = Method{
		Name:           "GetSyncStatus",
		RequestOpcode:  OpcodeGetSyncStatus,
		ResponseOpcode: OpcodeSyncStatus,
		RequestType:    TypeEmpty,
		ResponseType:   "SyncStatus",
	}
	MethodSubscribeBlocks = Method{
		Name:           "SubscribeBlocks",
		RequestOpcode:  OpcodeSubscribeBlocks,
		ResponseOpcode: OpcodeSubscribedBlocks,
		RequestType:    TypeSubscribeRequest,
		ResponseType:   TypeSubscribeConfirmation,
	}
	MethodSubscribeEpochs = Method{
		Name:           "SubscribeEpochs",
		RequestOpcode:  OpcodeSubscribeEpochs,
		ResponseOpcode: OpcodeSubscribedEpochs,
		RequestType:    TypeSubscribeRequest,
		ResponseType:   TypeSubscribeConfirmation,
	}
	MethodSubscribeMempool = Method{
		Name:           "SubscribeMempool",
		RequestOpcode:  OpcodeSubscribeMempool,
		ResponseOpcode: OpcodeSubscribedMempool,
		RequestType:    TypeSubscribeRequest,
		ResponseType:   TypeSubscribeConfirmation,
	}
	MethodUnsubscribe = Method{
		Name:           "Unsubscribe",
		RequestOpcode:  OpcodeUnsubscribe,
		ResponseOpcode: OpcodeUnsubscribed,
		RequestType:    TypeUnsubscribeRequest,
		ResponseType:   TypeUnsubscribeConfirmation,
	}
)

// Methods lists every method in the catalog
var Methods = []Method{
	MethodPing,
	MethodHandshake,
	MethodGetBlockNumber,
	MethodGetBlockByNumber,
	MethodGetBlockByHash,
	MethodGetBlockTransactions,
	MethodGetTransaction,
	MethodSubmitTransaction,
	MethodGetMempool,
	MethodGetEpoch,
	MethodGetCurrentEpoch,
	MethodGetBalance,
	MethodGetUtxos,
	MethodGetAddressTransactions,
	MethodGetContract,
	MethodGetContractState,
	MethodCall,
	MethodGetNodeInfo,
	MethodGetSyncStatus,
	MethodSubscribeBlocks,
	MethodSubscribeEpochs,
	MethodSubscribeMempool,
	MethodUnsubscribe,
}

// Topic identifies a kind of server push
type Topic uint8

const (
	TopicNone    Topic = 0
	TopicBlocks  Topic = 1
	TopicEpochs  Topic = 2
	TopicMempool Topic = 3
)

func (t Topic) String() string {
	switch t {
	case TopicBlocks:
		return "BLOCKS"
	case TopicEpochs:
		return "EPOCHS"
	case TopicMempool:
		return "MEMPOOL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// TopicMapping ties a push topic to its subscribe method and notification frame
type TopicMapping struct {
	Topic              Topic
	Subscribe          Method
	NotificationOpcode Opcode
	NotificationType   string
}

// Topics lists every push topic in the catalog
var Topics = []TopicMapping{
	{
		Topic:              TopicBlocks,
		Subscribe:          MethodSubscribeBlocks,
		NotificationOpcode: OpcodeNewBlockNotification,
		NotificationType:   TypeBlockNotification,
	},
	{
		Topic:              TopicEpochs,
		Subscribe:          MethodSubscribeEpochs,
		NotificationOpcode: OpcodeNewEpochNotification,
		NotificationType:   TypeEpochNotification,
	},
	{
		Topic:              TopicMempool,
		Subscribe:          MethodSubscribeMempool,
		NotificationOpcode: OpcodeNewMempoolTxNotification,
		NotificationType:   TypeMempoolTxNotification,
	},
}

var (
	methodsByRequestOpcode  = map[Opcode]Method{}
	methodsByResponseOpcode = map[Opcode]Method{}
	topicsByOpcode          = map[Opcode]TopicMapping{}
	topicsByTopic           = map[Topic]TopicMapping{}
)

func init() {
	// Build the reverse lookup tables and make sure that opcodes are unique within
	// their own space. A duplicate here is a programming error
	for _, method := range Methods {
		if !method.RequestOpcode.IsRequest() {
			panic(
				fmt.Sprintf(
					"method %s: request opcode 0x%02x outside of request range",
					method.Name,
					uint8(method.RequestOpcode),
				),
			)
		}
		if !method.ResponseOpcode.IsResponse() ||
			method.ResponseOpcode == OpcodeError {
			panic(
				fmt.Sprintf(
					"method %s: invalid response opcode 0x%02x",
					method.Name,
					uint8(method.ResponseOpcode),
				),
			)
		}
		if _, ok := methodsByRequestOpcode[method.RequestOpcode]; ok {
			panic(
				fmt.Sprintf(
					"duplicate request opcode 0x%02x",
					uint8(method.RequestOpcode),
				),
			)
		}
		if _, ok := methodsByResponseOpcode[method.ResponseOpcode]; ok {
			panic(
				fmt.Sprintf(
					"duplicate response opcode 0x%02x",
					uint8(method.ResponseOpcode),
				),
			)
		}
		methodsByRequestOpcode[method.RequestOpcode] = method
		methodsByResponseOpcode[method.ResponseOpcode] = method
	}
	for _, topic := range Topics {
		if _, ok := methodsByResponseOpcode[topic.NotificationOpcode]; ok {
			panic(
				fmt.Sprintf(
					"notification opcode 0x%02x collides with a response opcode",
					uint8(topic.NotificationOpcode),
				),
			)
		}
		topicsByOpcode[topic.NotificationOpcode] = topic
		topicsByTopic[topic.Topic] = topic
	}
}

// MethodByRequestOpcode returns the method with the specified request opcode
func MethodByRequestOpcode(opcode Opcode) (Method, bool) {
	method, ok := methodsByRequestOpcode[opcode]
	return method, ok
}

// MethodByResponseOpcode returns the method with the specified response opcode
func MethodByResponseOpcode(opcode Opcode) (Method, bool) {
	method, ok := methodsByResponseOpcode[opcode]
	return method, ok
}

// TopicByNotificationOpcode returns the push topic delivered with the specified opcode
func TopicByNotificationOpcode(opcode Opcode) (TopicMapping, bool) {
	topic, ok := topicsByOpcode[opcode]
	return topic, ok
}

// LookupTopic returns the mapping for the specified push topic
func LookupTopic(topic Topic) (TopicMapping, bool) {
	mapping, ok := topicsByTopic[topic]
	return mapping, ok
}

// IsNotification returns true if the opcode is a server push
func IsNotification(opcode Opcode) bool {
	_, ok := topicsByOpcode[opcode]
	return ok
}
