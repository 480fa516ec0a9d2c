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

// Opcode identifies the operation or message kind of a frame
type Opcode uint8

// Request opcodes (client to server) occupy 0x00-0x7f. Response and push opcodes (server
// to client) occupy 0x80-0xff
const (
	OpcodeResponseFlag Opcode = 0x80
)

// Client to server
const (
	OpcodePing                   Opcode = 0x00
	OpcodeHandshake              Opcode = 0x01
	OpcodeGetBlockNumber         Opcode = 0x10
	OpcodeGetBlockByNumber       Opcode = 0x11
	OpcodeGetBlockByHash         Opcode = 0x12
	OpcodeGetBlockTransactions   Opcode = 0x13
	OpcodeGetTransaction         Opcode = 0x20
	OpcodeSubmitTransaction      Opcode = 0x21
	OpcodeGetMempool             Opcode = 0x22
	OpcodeGetEpoch               Opcode = 0x30
	OpcodeGetCurrentEpoch        Opcode = 0x31
	OpcodeGetBalance             Opcode = 0x40
	OpcodeGetUtxos               Opcode = 0x41
	OpcodeGetAddressTransactions Opcode = 0x42
	OpcodeGetContract            Opcode = 0x50
	OpcodeGetContractState       Opcode = 0x51
	OpcodeCall                   Opcode = 0x52
	OpcodeGetNodeInfo            Opcode = 0x60
	OpcodeGetSyncStatus          Opcode = 0x61
	OpcodeSubscribeBlocks        Opcode = 0x70
	OpcodeSubscribeEpochs        Opcode = 0x71
	OpcodeSubscribeMempool       Opcode = 0x72
	OpcodeUnsubscribe            Opcode = 0x7f
)

// Server to client
const (
	OpcodeError                    Opcode = 0x80
	OpcodePong                     Opcode = 0x81
	OpcodeHandshakeAck             Opcode = 0x82
	OpcodeBlockNumber              Opcode = 0x90
	OpcodeBlock                    Opcode = 0x91
	OpcodeBlockByHash              Opcode = 0x92
	OpcodeBlockTransactions        Opcode = 0x93
	OpcodeTransaction              Opcode = 0xa0
	OpcodeSubmitTransactionResult  Opcode = 0xa1
	OpcodeMempool                  Opcode = 0xa2
	OpcodeEpoch                    Opcode = 0xb0
	OpcodeCurrentEpoch             Opcode = 0xb1
	OpcodeBalance                  Opcode = 0xc0
	OpcodeUtxos                    Opcode = 0xc1
	OpcodeAddressTransactions      Opcode = 0xc2
	OpcodeContract                 Opcode = 0xd0
	OpcodeContractState            Opcode = 0xd1
	OpcodeCallResult               Opcode = 0xd2
	OpcodeNodeInfo                 Opcode = 0xe0
	OpcodeSyncStatus               Opcode = 0xe1
	OpcodeSubscribedBlocks         Opcode = 0xf0
	OpcodeSubscribedEpochs         Opcode = 0xf1
	OpcodeSubscribedMempool        Opcode = 0xf2
	OpcodeNewBlockNotification     Opcode = 0xf8
	OpcodeNewEpochNotification     Opcode = 0xf9
	OpcodeNewMempoolTxNotification Opcode = 0xfa
	OpcodeUnsubscribed             Opcode = 0xff
)

// IsRequest returns true if the opcode lives in the client to server range
func (o Opcode) IsRequest() bool {
	return o&OpcodeResponseFlag == 0
}

// IsResponse returns true if the opcode lives in the server to client range
func (o Opcode) IsResponse() bool {
	return o&OpcodeResponseFlag != 0
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(o))
}

// opcodeNames maps opcodes to human-readable names for logging and diagnostics
var opcodeNames = map[Opcode]string{
	OpcodePing:                     "PING",
	OpcodeHandshake:                "HANDSHAKE",
	OpcodeGetBlockNumber:           "GET_BLOCK_NUMBER",
	OpcodeGetBlockByNumber:         "GET_BLOCK_BY_NUMBER",
	OpcodeGetBlockByHash:           "GET_BLOCK_BY_HASH",
	OpcodeGetBlockTransactions:     "GET_BLOCK_TRANSACTIONS",
	OpcodeGetTransaction:           "GET_TRANSACTION",
	OpcodeSubmitTransaction:        "SUBMIT_TRANSACTION",
	OpcodeGetMempool:               "GET_MEMPOOL",
	OpcodeGetEpoch:                 "GET_EPOCH",
	OpcodeGetCurrentEpoch:          "GET_CURRENT_EPOCH",
	OpcodeGetBalance:               "GET_BALANCE",
	OpcodeGetUtxos:                 "GET_UTXOS",
	OpcodeGetAddressTransactions:   "GET_ADDRESS_TRANSACTIONS",
	OpcodeGetContract:              "GET_CONTRACT",
	OpcodeGetContractState:         "GET_CONTRACT_STATE",
	OpcodeCall:                     "CALL",
	OpcodeGetNodeInfo:              "GET_NODE_INFO",
	OpcodeGetSyncStatus:            "GET_SYNC_STATUS",
	OpcodeSubscribeBlocks:          "SUBSCRIBE_BLOCKS",
	OpcodeSubscribeEpochs:          "SUBSCRIBE_EPOCHS",
	OpcodeSubscribeMempool:         "SUBSCRIBE_MEMPOOL",
	OpcodeUnsubscribe:              "UNSUBSCRIBE",
	OpcodeError:                    "ERROR",
	OpcodePong:                     "PONG",
	OpcodeHandshakeAck:             "HANDSHAKE_ACK",
	OpcodeBlockNumber:              "BLOCK_NUMBER",
	OpcodeBlock:                    "BLOCK",
	OpcodeBlockByHash:              "BLOCK_BY_HASH",
	OpcodeBlockTransactions:        "BLOCK_TRANSACTIONS",
	OpcodeTransaction:              "TRANSACTION",
	OpcodeSubmitTransactionResult:  "SUBMIT_TRANSACTION_RESULT",
	OpcodeMempool:                  "MEMPOOL",
	OpcodeEpoch:                    "EPOCH",
	OpcodeCurrentEpoch:             "CURRENT_EPOCH",
	OpcodeBalance:                  "BALANCE",
	OpcodeUtxos:                    "UTXOS",
	OpcodeAddressTransactions:      "ADDRESS_TRANSACTIONS",
	OpcodeContract:                 "CONTRACT",
	OpcodeContractState:            "CONTRACT_STATE",
	OpcodeCallResult:               "CALL_RESULT",
	OpcodeNodeInfo:                 "NODE_INFO",
	OpcodeSyncStatus:               "SYNC_STATUS",
	OpcodeSubscribedBlocks:         "SUBSCRIBED_BLOCKS",
	OpcodeSubscribedEpochs:         "SUBSCRIBED_EPOCHS",
	OpcodeSubscribedMempool:        "SUBSCRIBED_MEMPOOL",
	OpcodeNewBlockNotification:     "NEW_BLOCK_NOTIFICATION",
	OpcodeNewEpochNotification:     "NEW_EPOCH_NOTIFICATION",
	OpcodeNewMempoolTxNotification: "NEW_MEMPOOL_TX_NOTIFICATION",
	OpcodeUnsubscribed:             "UNSUBSCRIBED",
}
