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
	"github.com/blinklabs-io/goindexer/subscription"
)

// Subscribe asks the node for notifications of the specified type. The filter is passed to
// the node as is. The handler runs on the client's dispatcher goroutine, one notification
// at a time, and may itself make requests. The subscription is replayed after every
// reconnect until it is removed with Unsubscribe
func (c *Client) Subscribe(
	ctx context.Context,
	subType subscription.Type,
	filter []byte,
	handler subscription.Handler,
) (*subscription.Subscription, error) {
	return c.subscriptions.Subscribe(ctx, subType, filter, handler)
}

// Unsubscribe removes the subscription locally and tells the node, best effort. No
// notification is delivered to the handler once Unsubscribe returns, unless it is already
// running
func (c *Client) Unsubscribe(ctx context.Context, handle subscription.Handle) error {
	return c.subscriptions.Unsubscribe(ctx, handle)
}

// Subscriptions returns the active subscriptions in creation order
func (c *Client) Subscriptions() []*subscription.Subscription {
	return c.subscriptions.Active()
}

// SendSubscribe writes the subscribe request for the type and returns the ID of the session
// it was written on. It is used by the subscription registry and is not meant to be called
// directly
func (c *Client) SendSubscribe(
	ctx context.Context,
	subType subscription.Type,
	filter []byte,
) (subscription.AwaitFunc, uint64, error) {
	topic, ok := protocol.LookupTopic(subType)
	if !ok {
		return nil, 0, fmt.Errorf("unknown subscription type %s", subType)
	}
	params := schema.Record{}
	if len(filter) > 0 {
		params["filter"] = filter
	}
	sess, err := c.readySession()
	if err != nil {
		return nil, 0, err
	}
	await, err := c.send(ctx, sess, topic.Subscribe, params, 0, false)
	if err != nil {
		return nil, 0, err
	}
	return func(ctx context.Context) (uint64, error) {
		value, err := await(ctx)
		if err != nil {
			return 0, err
		}
		return subscriptionId(topic.Subscribe, value)
	}, sess.id, nil
}

// SendUnsubscribe cancels a subscription on the node. It is used by the subscription
// registry and is not meant to be called directly
func (c *Client) SendUnsubscribe(ctx context.Context, serverId uint64) error {
	_, err := c.callRecord(
		ctx,
		protocol.MethodUnsubscribe,
		schema.Record{"subscriptionId": serverId},
	)
	return err
}

func subscriptionId(method protocol.Method, value any) (uint64, error) {
	record, ok := value.(schema.Record)
	if ok {
		if id, ok := record.Uint("subscriptionId"); ok {
			return id, nil
		}
	}
	return 0, protocol.ErrMalformedMessage.Wrap(
		fmt.Errorf("%s: confirmation without subscription id", method),
	)
}
