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
	"context"
	"fmt"

	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
)

// AddressRange selects the transactions of an address. Zero values are left unset
type AddressRange struct {
	Address   string
	FromBlock uint64
	ToBlock   uint64
	Limit     uint64
}

// GetBlockNumber returns the number of the latest block known to the node
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	record, err := c.callRecord(ctx, protocol.MethodGetBlockNumber, nil)
	if err != nil {
		return 0, err
	}
	number, ok := record.Uint("number")
	if !ok {
		return 0, missingField(protocol.MethodGetBlockNumber, "number")
	}
	return number, nil
}

func (c *Client) GetBlockByNumber(ctx context.Context, number uint64) (schema.Record, error) {
	return c.callRecord(
		ctx,
		protocol.MethodGetBlockByNumber,
		schema.Record{"number": number},
	)
}

func (c *Client) GetBlockByHash(ctx context.Context, hash []byte) (schema.Record, error) {
	return c.callRecord(
		ctx,
		protocol.MethodGetBlockByHash,
		schema.Record{"hash": hash},
	)
}

// GetBlockTransactions returns the transactions of a block in block order
func (c *Client) GetBlockTransactions(ctx context.Context, number uint64) ([]schema.Record, error) {
	return c.callTransactionList(
		ctx,
		protocol.MethodGetBlockTransactions,
		schema.Record{"number": number},
	)
}

func (c *Client) GetTransaction(ctx context.Context, hash []byte) (schema.Record, error) {
	return c.callRecord(
		ctx,
		protocol.MethodGetTransaction,
		schema.Record{"hash": hash},
	)
}

// SubmitTransaction hands a serialized transaction to the node. A transaction the node
// refuses is reported in the result record, not as an error
func (c *Client) SubmitTransaction(ctx context.Context, body []byte) (schema.Record, error) {
	return c.callRecord(
		ctx,
		protocol.MethodSubmitTransaction,
		schema.Record{"body": body},
	)
}

func (c *Client) GetMempool(ctx context.Context) ([]schema.Record, error) {
	return c.callTransactionList(ctx, protocol.MethodGetMempool, nil)
}

func (c *Client) GetEpoch(ctx context.Context, epoch uint64) (schema.Record, error) {
	return c.callRecord(
		ctx,
		protocol.MethodGetEpoch,
		schema.Record{"epoch": epoch},
	)
}

func (c *Client) GetCurrentEpoch(ctx context.Context) (schema.Record, error) {
	return c.callRecord(ctx, protocol.MethodGetCurrentEpoch, nil)
}

func (c *Client) GetBalance(ctx context.Context, address string) (schema.Record, error) {
	return c.callRecord(
		ctx,
		protocol.MethodGetBalance,
		schema.Record{"address": address},
	)
}

// GetUtxos returns the unspent outputs held by an address
func (c *Client) GetUtxos(ctx context.Context, address string) ([]schema.Record, error) {
	record, err := c.callRecord(
		ctx,
		protocol.MethodGetUtxos,
		schema.Record{"address": address},
	)
	if err != nil {
		return nil, err
	}
	return recordList(protocol.MethodGetUtxos, record, "utxos")
}

func (c *Client) GetAddressTransactions(
	ctx context.Context,
	addrRange AddressRange,
) ([]schema.Record, error) {
	params := schema.Record{"address": addrRange.Address}
	if addrRange.FromBlock > 0 {
		params["fromBlock"] = addrRange.FromBlock
	}
	if addrRange.ToBlock > 0 {
		params["toBlock"] = addrRange.ToBlock
	}
	if addrRange.Limit > 0 {
		params["limit"] = addrRange.Limit
	}
	return c.callTransactionList(ctx, protocol.MethodGetAddressTransactions, params)
}

func (c *Client) GetContract(ctx context.Context, address string) (schema.Record, error) {
	return c.callRecord(
		ctx,
		protocol.MethodGetContract,
		schema.Record{"address": address},
	)
}

// GetContractState returns the contract state, or a single entry of it when key is set
func (c *Client) GetContractState(
	ctx context.Context,
	address string,
	key []byte,
) (schema.Record, error) {
	params := schema.Record{"address": address}
	if len(key) > 0 {
		params["key"] = key
	}
	return c.callRecord(ctx, protocol.MethodGetContractState, params)
}

// CallContract runs a read-only contract call at the tip
func (c *Client) CallContract(
	ctx context.Context,
	address string,
	data []byte,
) (schema.Record, error) {
	return c.callRecord(
		ctx,
		protocol.MethodCall,
		schema.Record{"address": address, "data": data},
	)
}

func (c *Client) GetNodeInfo(ctx context.Context) (schema.Record, error) {
	return c.callRecord(ctx, protocol.MethodGetNodeInfo, nil)
}

func (c *Client) GetSyncStatus(ctx context.Context) (schema.Record, error) {
	return c.callRecord(ctx, protocol.MethodGetSyncStatus, nil)
}

func (c *Client) callTransactionList(
	ctx context.Context,
	method protocol.Method,
	params any,
) ([]schema.Record, error) {
	record, err := c.callRecord(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return recordList(method, record, "transactions")
}

func recordList(method protocol.Method, record schema.Record, name string) ([]schema.Record, error) {
	items, ok := record.List(name)
	if !ok {
		return nil, missingField(method, name)
	}
	ret := make([]schema.Record, 0, len(items))
	for _, item := range items {
		tmp, ok := item.(schema.Record)
		if !ok {
			return nil, protocol.ErrMalformedMessage.Wrap(
				fmt.Errorf("%s: %s item is %T", method, name, item),
			)
		}
		ret = append(ret, tmp)
	}
	return ret, nil
}

func missingField(method protocol.Method, name string) error {
	return protocol.ErrMalformedMessage.Wrap(
		fmt.Errorf("%s: response without %s", method, name),
	)
}
