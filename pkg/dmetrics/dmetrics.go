// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package dmetrics exposes a dicey server's runtime counters through
// github.com/prometheus/client_golang.
package dmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups every counter/gauge a Server reports. It is safe to
// pass a nil *Collector around: every method is a no-op on a nil
// receiver, so wiring metrics is optional for callers that don't want
// to register a prometheus.Registerer.
type Collector struct {
	ConnectedClients prometheus.Gauge
	InflightRequests prometheus.Gauge
	SignalsRaised    prometheus.Counter
	Subscriptions    prometheus.Gauge
}

// NewCollector builds and registers a Collector against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dicey", Name: "connected_clients", Help: "Number of currently connected IPC clients.",
		}),
		InflightRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dicey", Name: "inflight_requests", Help: "Number of GET/SET/EXEC requests dispatched but not yet replied to.",
		}),
		SignalsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dicey", Name: "signals_raised_total", Help: "Total number of signals raised by the server.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dicey", Name: "subscriptions", Help: "Number of live signal subscriptions held by the registry.",
		}),
	}
	reg.MustRegister(c.ConnectedClients, c.InflightRequests, c.SignalsRaised, c.Subscriptions)
	return c
}

func (c *Collector) ClientConnected() {
	if c == nil {
		return
	}
	c.ConnectedClients.Inc()
}

func (c *Collector) ClientDisconnected() {
	if c == nil {
		return
	}
	c.ConnectedClients.Dec()
}

func (c *Collector) RequestStarted() {
	if c == nil {
		return
	}
	c.InflightRequests.Inc()
}

func (c *Collector) RequestFinished() {
	if c == nil {
		return
	}
	c.InflightRequests.Dec()
}

func (c *Collector) SignalRaised() {
	if c == nil {
		return
	}
	c.SignalsRaised.Inc()
}

func (c *Collector) SubscriptionAdded() {
	if c == nil {
		return
	}
	c.Subscriptions.Inc()
}

func (c *Collector) SubscriptionRemoved() {
	if c == nil {
		return
	}
	c.Subscriptions.Dec()
}
