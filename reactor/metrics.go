// File: reactor/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus exposition of shard counters. Values are read at scrape time so
// the event loop carries no metrics cost.

package reactor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "hioload"
	metricsSubsystem = "reactor"
)

type statsCollector struct {
	r *Reactor

	running      *prometheus.Desc
	total        *prometheus.Desc
	active       *prometheus.Desc
	events       *prometheus.Desc
	batches      *prometheus.Desc
	admitted     *prometheus.Desc
	queueDepth   *prometheus.Desc
	queueFull    *prometheus.Desc
	admitFailed  *prometheus.Desc
	timeouts     *prometheus.Desc
	bytesRead    *prometheus.Desc
	bytesWritten *prometheus.Desc
}

func desc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, metricsSubsystem, name),
		help, []string{"thread"}, nil)
}

// Collector returns a prometheus.Collector reporting Stats labelled by thread.
func (r *Reactor) Collector() prometheus.Collector {
	return &statsCollector{
		r:            r,
		running:      desc("thread_running", "1 while the shard event loop is running."),
		total:        desc("connections_total", "Connections admitted by the shard."),
		active:       desc("connections_active", "Connections currently owned by the shard."),
		events:       desc("events_total", "Readiness events processed."),
		batches:      desc("admission_batches_total", "Admission batches holding more than one socket."),
		admitted:     desc("queue_pushed_total", "Sockets accepted into the admission queue."),
		queueDepth:   desc("queue_depth", "Sockets waiting in the admission queue."),
		queueFull:    desc("queue_full_total", "Sockets rejected because the admission queue was full."),
		admitFailed:  desc("admission_failures_total", "Sockets closed because registration failed."),
		timeouts:     desc("timeouts_total", "Connections evicted for inactivity."),
		bytesRead:    desc("read_bytes_total", "Bytes read from sockets."),
		bytesWritten: desc("written_bytes_total", "Bytes written to sockets."),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.running, c.total, c.active, c.events, c.batches, c.admitted,
		c.queueDepth, c.queueFull, c.admitFailed, c.timeouts, c.bytesRead, c.bytesWritten,
	} {
		ch <- d
	}
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, t := range c.r.Stats().Threads {
		id := strconv.Itoa(t.ID)
		running := 0.0
		if t.Running {
			running = 1
		}
		ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running, id)
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, float64(t.TotalConnections), id)
		ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(t.ActiveConnections), id)
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(t.EventsProcessed), id)
		ch <- prometheus.MustNewConstMetric(c.batches, prometheus.CounterValue, float64(t.BatchesProcessed), id)
		ch <- prometheus.MustNewConstMetric(c.admitted, prometheus.CounterValue, float64(t.Admitted), id)
		ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(t.QueueDepth), id)
		ch <- prometheus.MustNewConstMetric(c.queueFull, prometheus.CounterValue, float64(t.QueuePushFailures), id)
		ch <- prometheus.MustNewConstMetric(c.admitFailed, prometheus.CounterValue, float64(t.AdmissionFailures), id)
		ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(t.Timeouts), id)
		ch <- prometheus.MustNewConstMetric(c.bytesRead, prometheus.CounterValue, float64(t.BytesRead), id)
		ch <- prometheus.MustNewConstMetric(c.bytesWritten, prometheus.CounterValue, float64(t.BytesWritten), id)
	}
}
