// File: reactor/stats.go
// Author: momentics <momentics@gmail.com>

package reactor

// ThreadStats is a point-in-time view of one shard.
type ThreadStats struct {
	ID                int
	Running           bool
	TotalConnections  uint64 // admitted since start
	ActiveConnections int64
	EventsProcessed   uint64
	BatchesProcessed  uint64 // admission batches holding more than one fd
	Admitted          uint64 // fds accepted into the admission queue
	QueueDepth        uint32
	QueuePushFailures uint64
	AdmissionFailures uint64
	Timeouts          uint64
	BytesRead         uint64
	BytesWritten      uint64
	SlotCapacity      int    // connection slots available to the shard
	BufferAllocs      uint64 // connection buffers allocated by the shard's pool
}

// Stats is a snapshot of the whole reactor.
type Stats struct {
	Running bool
	Threads []ThreadStats
}

// Totals sums the per-shard counters. ID and Running are left zero.
func (s Stats) Totals() ThreadStats {
	var sum ThreadStats
	for _, t := range s.Threads {
		sum.TotalConnections += t.TotalConnections
		sum.ActiveConnections += t.ActiveConnections
		sum.EventsProcessed += t.EventsProcessed
		sum.BatchesProcessed += t.BatchesProcessed
		sum.Admitted += t.Admitted
		sum.QueueDepth += t.QueueDepth
		sum.QueuePushFailures += t.QueuePushFailures
		sum.AdmissionFailures += t.AdmissionFailures
		sum.Timeouts += t.Timeouts
		sum.BytesRead += t.BytesRead
		sum.BytesWritten += t.BytesWritten
		sum.SlotCapacity += t.SlotCapacity
		sum.BufferAllocs += t.BufferAllocs
	}
	return sum
}
