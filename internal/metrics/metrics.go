// go-mctp
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-mctp.
//
// go-mctp is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-mctp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-mctp; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package metrics exports endpoint and actor counters to Prometheus
package metrics

import (
	"net/http"

	mctp "github.com/ZaparooProject/go-mctp"
	"github.com/ZaparooProject/go-mctp/polling"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mctp"

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the Prometheus HTTP handler for reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// StatsSource provides endpoint counters
type StatsSource interface {
	Stats() mctp.Stats
}

// ActorSource provides actor loop metrics
type ActorSource interface {
	GetMetrics() polling.ActorMetrics
}

// Collector reads endpoint and actor counters at scrape time
type Collector struct {
	stats StatsSource
	actor ActorSource

	dropped       *prometheus.Desc
	bytesReceived *prometheus.Desc
	bytesSent     *prometheus.Desc
	accepted      *prometheus.Desc
	resyncs       *prometheus.Desc
	busyDiscarded *prometheus.Desc
	ignored       *prometheus.Desc
	responses     *prometheus.Desc
	events        *prometheus.Desc
	cycles        *prometheus.Desc
	loopErrors    *prometheus.Desc
	handled       *prometheus.Desc
	cycleLatency  *prometheus.Desc
}

// NewCollector creates a collector. actor may be nil.
func NewCollector(stats StatsSource, actor ActorSource) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		stats:         stats,
		actor:         actor,
		dropped:       desc("frames_dropped_total", "Inbound frames dropped, by reason.", "reason"),
		bytesReceived: desc("bytes_received_total", "Bytes read from the transport."),
		bytesSent:     desc("bytes_sent_total", "Wire bytes written to the transport."),
		accepted:      desc("frames_accepted_total", "Frames validated and admitted."),
		resyncs:       desc("resyncs_total", "Frames restarted on an unexpected sentinel."),
		busyDiscarded: desc("busy_discarded_bytes_total", "Bytes discarded while a packet was pending."),
		ignored:       desc("packets_ignored_total", "Admitted packets dropped without a response."),
		responses:     desc("responses_sent_total", "Response frames fully transmitted."),
		events:        desc("events_sent_total", "Event frames fully transmitted."),
		cycles:        desc("actor_cycles_total", "Actor service cycles."),
		loopErrors:    desc("actor_errors_total", "Transport and handler errors seen by the actor."),
		handled:       desc("actor_handled_total", "Requests answered by the actor, by message type.", "type"),
		cycleLatency:  desc("actor_cycle_seconds", "Duration of the last actor cycle."),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.dropped, c.bytesReceived, c.bytesSent, c.accepted, c.resyncs,
		c.busyDiscarded, c.ignored, c.responses, c.events,
	} {
		ch <- d
	}
	if c.actor != nil {
		ch <- c.cycles
		ch <- c.loopErrors
		ch <- c.handled
		ch <- c.cycleLatency
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Stats()
	for _, reason := range mctp.DropReasons() {
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue,
			float64(s.Dropped[reason]), reason.String())
	}
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.bytesReceived, s.BytesReceived)
	counter(c.bytesSent, s.BytesSent)
	counter(c.accepted, s.Accepted)
	counter(c.resyncs, s.Resyncs)
	counter(c.busyDiscarded, s.BusyDiscarded)
	counter(c.ignored, s.Ignored)
	counter(c.responses, s.Responses)
	counter(c.events, s.Events)

	if c.actor == nil {
		return
	}
	m := c.actor.GetMetrics()
	ch <- prometheus.MustNewConstMetric(c.cycles, prometheus.CounterValue, float64(m.Cycles))
	ch <- prometheus.MustNewConstMetric(c.loopErrors, prometheus.CounterValue, float64(m.Errors))
	ch <- prometheus.MustNewConstMetric(c.handled, prometheus.CounterValue, float64(m.ControlHandled), "control")
	ch <- prometheus.MustNewConstMetric(c.handled, prometheus.CounterValue, float64(m.PLDMHandled), "pldm")
	ch <- prometheus.MustNewConstMetric(c.cycleLatency, prometheus.GaugeValue, m.LastCycleLatency.Seconds())
}
