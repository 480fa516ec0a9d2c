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
	"time"

	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "goindexer"

// Request outcomes
const (
	outcomeOk       = "ok"
	outcomeError    = "error"
	outcomeTimeout  = "timeout"
	outcomeCanceled = "canceled"
)

type clientMetrics struct {
	framesSent        *prometheus.CounterVec
	framesReceived    *prometheus.CounterVec
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	pending           prometheus.GaugeFunc
	reconnectAttempts prometheus.Counter
	state             prometheus.Gauge
	notifications     *prometheus.CounterVec
}

// newClientMetrics builds the client collectors. A nil registerer leaves them
// unregistered
func newClientMetrics(
	registerer prometheus.Registerer,
	pendingFunc func() float64,
) *clientMetrics {
	factory := promauto.With(registerer)
	return &clientMetrics{
		framesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "frames_sent_total",
				Help:      "The total number of frames written to the socket",
			},
			[]string{"opcode"},
		),
		framesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "frames_received_total",
				Help:      "The total number of frames read from the socket",
			},
			[]string{"opcode"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "The total number of completed requests",
			},
			[]string{"method", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "The time from request registration to completion",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"method"},
		),
		pending: factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "pending_requests",
				Help:      "The current number of outstanding requests",
			},
			pendingFunc,
		),
		reconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconnect_attempts_total",
			Help:      "The total number of reconnect attempts",
		}),
		state: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connection_state",
			Help:      "The current connection state (0=Disconnected 1=Connecting 2=Connected 3=Handshaking 4=Ready 5=Reconnecting 6=Closing)",
		}),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "notifications_total",
				Help:      "The total number of notifications by outcome",
			},
			[]string{"type", "outcome"},
		),
	}
}

func (m *clientMetrics) frameSent(opcode protocol.Opcode) {
	m.framesSent.WithLabelValues(opcode.String()).Inc()
}

func (m *clientMetrics) frameReceived(opcode protocol.Opcode) {
	m.framesReceived.WithLabelValues(opcode.String()).Inc()
}

func (m *clientMetrics) requestCompleted(
	method protocol.Method,
	elapsed time.Duration,
	outcome string,
) {
	m.requests.WithLabelValues(method.Name, outcome).Inc()
	m.requestDuration.WithLabelValues(method.Name).Observe(elapsed.Seconds())
}

func (m *clientMetrics) notificationDropped(topic protocol.Topic) {
	m.notifications.WithLabelValues(topic.String(), "dropped").Inc()
}

func (m *clientMetrics) notificationDispatched(topic protocol.Topic, delivered int) {
	outcome := "delivered"
	if delivered == 0 {
		outcome = "unmatched"
	}
	m.notifications.WithLabelValues(topic.String(), outcome).Inc()
}
