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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/goindexer/cmd/common"
	"github.com/blinklabs-io/goindexer/schema"
	"github.com/blinklabs-io/goindexer/subscription"
)

type watchFlags struct {
	*common.GlobalFlags
	follow  bool
	mempool bool
	filter  string
}

func main() {
	// Parse commandline
	f := watchFlags{
		GlobalFlags: common.NewGlobalFlags(),
	}
	f.Flagset.BoolVar(&f.follow, "follow", false, "print new blocks until interrupted")
	f.Flagset.BoolVar(&f.mempool, "mempool", false, "also print new mempool transactions when following")
	f.Flagset.StringVar(&f.filter, "filter", "", "subscription filter passed to the node")
	f.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := common.CreateClient(ctx, f.GlobalFlags)
	defer client.Close()

	info, err := client.GetNodeInfo(ctx)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	name, _ := info.String("name")
	version, _ := info.String("version")
	network, _ := info.String("network")
	fmt.Printf("Node: %s %s (%s)\n", name, version, network)

	tip, err := client.GetBlockNumber(ctx)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("Current block number: %d\n", tip)

	status, err := client.GetSyncStatus(ctx)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	progress, _ := status.Float("progress")
	fmt.Printf("Sync progress: %.2f%%\n", progress*100)

	if !f.follow {
		return
	}
	var filter []byte
	if f.filter != "" {
		filter = []byte(f.filter)
	}
	if _, err := client.Subscribe(ctx, subscription.TypeBlocks, filter, printBlock); err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	if f.mempool {
		if _, err := client.Subscribe(ctx, subscription.TypeMempool, filter, printMempoolTx); err != nil {
			fmt.Printf("ERROR: %s\n", err)
			os.Exit(1)
		}
	}
	<-ctx.Done()
}

func printBlock(n subscription.Notification) {
	record, _ := n.Value.(schema.Record)
	block, ok := record.Record("block")
	if !ok {
		return
	}
	number, _ := block.Uint("number")
	slot, _ := block.Uint("slot")
	hash, _ := block.Bytes("hash")
	txCount, _ := block.Uint("txCount")
	fmt.Printf("block %d slot %d hash %x (%d txs)\n", number, slot, hash, txCount)
}

func printMempoolTx(n subscription.Notification) {
	record, _ := n.Value.(schema.Record)
	tx, ok := record.Record("transaction")
	if !ok {
		return
	}
	hash, _ := tx.Bytes("hash")
	fee, _ := tx.Uint("fee")
	fmt.Printf("mempool tx %x fee %d\n", hash, fee)
}
