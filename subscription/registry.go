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

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/goindexer/protocol"
)

var ErrNilHandler = errors.New("subscription handler must not be nil")

// AwaitFunc waits for the confirmation of a subscribe request and returns the server
// assigned subscription ID
type AwaitFunc func(ctx context.Context) (uint64, error)

// Sender issues subscription requests on the current connection
type Sender interface {
	// SendSubscribe writes a subscribe request and returns without waiting for the
	// confirmation. The returned generation identifies the connection the request was
	// written on and increases with every new connection
	SendSubscribe(ctx context.Context, subType Type, filter []byte) (AwaitFunc, uint64, error)
	SendUnsubscribe(ctx context.Context, serverId uint64) error
}

// Registry is the ordered table of subscriptions
type Registry struct {
	mu         sync.Mutex
	logger     *slog.Logger
	sender     Sender
	subs       []*Subscription
	nextHandle Handle

	// generation of the newest connection whose replay has taken its snapshot
	replayed uint64
}

type RegistryOptionFunc func(*Registry)

// NewRegistry returns an empty registry that sends requests through sender
func NewRegistry(sender Sender, opts ...RegistryOptionFunc) *Registry {
	r := &Registry{
		logger:     slog.Default(),
		sender:     sender,
		nextHandle: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) RegistryOptionFunc {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Subscribe asks the server for a subscription and stores it as active once confirmed
func (r *Registry) Subscribe(
	ctx context.Context,
	subType Type,
	filter []byte,
	handler Handler,
) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if _, ok := protocol.LookupTopic(subType); !ok {
		return nil, fmt.Errorf("unknown subscription type %s", subType)
	}
	sub := &Subscription{
		Type:      subType,
		Filter:    append([]byte(nil), filter...),
		CreatedAt: time.Now(),
		handler:   handler,
	}
	for {
		await, generation, err := r.sender.SendSubscribe(ctx, subType, filter)
		if err != nil {
			return nil, err
		}
		serverId, err := await(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if generation >= r.replayed {
			sub.serverId.Store(serverId)
			sub.generation.Store(generation)
			sub.active.Store(true)
			sub.Id = r.nextHandle
			r.nextHandle++
			r.subs = append(r.subs, sub)
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()
		// The connection was replaced and replayed before the subscription was recorded,
		// so the current connection does not know about it
		r.logger.Debug(
			"subscription confirmed on a replaced connection, resubscribing",
			"component", "subscription",
			"type", subType.String(),
			"generation", generation,
		)
	}
	r.logger.Debug(
		"subscription added",
		"component", "subscription",
		"handle", sub.Id,
		"type", subType.String(),
		"server_id", sub.ServerId(),
	)
	return sub, nil
}

// Unsubscribe removes the subscription and then tells the server, best effort. The local
// entry is removed even if the server cannot be reached
func (r *Registry) Unsubscribe(ctx context.Context, handle Handle) error {
	r.mu.Lock()
	var sub *Subscription
	for idx, tmpSub := range r.subs {
		if tmpSub.Id == handle {
			sub = tmpSub
			r.subs = append(r.subs[:idx:idx], r.subs[idx+1:]...)
			break
		}
	}
	r.mu.Unlock()
	if sub == nil {
		return protocol.ErrSubscriptionNotFound.Wrap(
			fmt.Errorf("no local subscription with handle %d", handle),
		)
	}
	wasActive := sub.active.Swap(false)
	if !wasActive {
		return nil
	}
	if err := r.sender.SendUnsubscribe(ctx, sub.ServerId()); err != nil {
		r.logger.Debug(
			"unsubscribe request failed",
			"component", "subscription",
			"handle", handle,
			"error", err,
		)
		return err
	}
	return nil
}

// Dispatch delivers the notification to every active subscription of its type, in
// creation order, and returns the number of handlers invoked. A panicking handler is
// logged and does not affect the others
func (r *Registry) Dispatch(notification Notification) int {
	r.mu.Lock()
	targets := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.Type == notification.Type && sub.active.Load() {
			targets = append(targets, sub)
		}
	}
	r.mu.Unlock()
	delivered := 0
	for _, sub := range targets {
		// The subscription may have been removed since the snapshot
		if !sub.active.Load() {
			continue
		}
		r.invoke(sub, notification)
		delivered++
	}
	return delivered
}

func (r *Registry) invoke(sub *Subscription, notification Notification) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error(
				fmt.Sprintf("subscription handler panicked: %v", err),
				"component", "subscription",
				"handle", sub.Id,
				"type", sub.Type.String(),
			)
		}
	}()
	sub.handler(notification)
}

// ReplayAll re-issues the subscribe request for every active subscription on the connection
// with the specified generation, in creation order. Subscriptions already confirmed on that
// connection are skipped. All requests are written before any confirmation is awaited.
// Subscriptions the server refuses are deactivated and their errors are returned joined
func (r *Registry) ReplayAll(ctx context.Context, generation uint64) error {
	r.mu.Lock()
	r.replayed = max(r.replayed, generation)
	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.active.Load() && sub.generation.Load() < generation {
			subs = append(subs, sub)
		}
	}
	r.mu.Unlock()
	type inflight struct {
		sub        *Subscription
		await      AwaitFunc
		generation uint64
	}
	pending := make([]inflight, 0, len(subs))
	var errs []error
	for _, sub := range subs {
		await, sentGeneration, err := r.sender.SendSubscribe(ctx, sub.Type, sub.Filter)
		if err != nil {
			if refused(err) {
				sub.active.Store(false)
			}
			errs = append(errs, fmt.Errorf("replay subscription %d: %w", sub.Id, err))
			continue
		}
		pending = append(pending, inflight{sub: sub, await: await, generation: sentGeneration})
	}
	for _, item := range pending {
		serverId, err := item.await(ctx)
		if err != nil {
			if refused(err) {
				item.sub.active.Store(false)
			}
			errs = append(errs, fmt.Errorf("replay subscription %d: %w", item.sub.Id, err))
			continue
		}
		item.sub.serverId.Store(serverId)
		item.sub.generation.Store(item.generation)
	}
	r.logger.Debug(
		"subscriptions replayed",
		"component", "subscription",
		"count", len(subs),
		"failed", len(errs),
	)
	return errors.Join(errs...)
}

// refused returns true if the replay failed because the subscription itself was
// rejected. Subscriptions that failed because the connection went away again stay active
// so the next replay picks them up
func refused(err error) bool {
	switch {
	case errors.Is(err, protocol.ErrReconnecting),
		errors.Is(err, protocol.ErrConnectionClosed),
		errors.Is(err, protocol.ErrHandshakeRequired),
		errors.Is(err, protocol.ErrClientClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// DeactivateAll stops delivery to every subscription without removing them
func (r *Registry) DeactivateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		sub.active.Store(false)
	}
}

// Clear removes every subscription
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		sub.active.Store(false)
	}
	r.subs = nil
}

// Active returns the active subscriptions in creation order
func (r *Registry) Active() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.active.Load() {
			ret = append(ret, sub)
		}
	}
	return ret
}

// Get returns the subscription with the specified handle
func (r *Registry) Get(handle Handle) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.Id == handle {
			return sub, true
		}
	}
	return nil, false
}

// Len returns the number of subscriptions, active or not
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
