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

// Package subscription keeps the table of server push subscriptions, delivers
// notifications to their handlers and re-establishes them after a reconnect
package subscription

import (
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/goindexer/protocol"
)

// Type is the kind of push a subscription receives
type Type = protocol.Topic

const (
	TypeBlocks  = protocol.TopicBlocks
	TypeEpochs  = protocol.TopicEpochs
	TypeMempool = protocol.TopicMempool
)

// Handle identifies a subscription locally. Handles are never reused
type Handle uint64

// Notification is a decoded server push
type Notification struct {
	Type           Type
	SubscriptionId uint64
	Value          any
}

// Handler receives notifications for a subscription
type Handler func(Notification)

// Subscription is an entry in the registry
type Subscription struct {
	Id        Handle
	Type      Type
	Filter    []byte
	CreatedAt time.Time
	handler   Handler
	active    atomic.Bool
	serverId  atomic.Uint64

	// connection generation of the last confirmation
	generation atomic.Uint64
}

// Active returns true if the subscription currently receives notifications
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// ServerId returns the subscription ID assigned by the server on the last confirmation
func (s *Subscription) ServerId() uint64 {
	return s.serverId.Load()
}
