// File: reactor/slots.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity slot table with O(1) allocation and generation tags.

package reactor

import "github.com/eapache/queue"

// slotTable maps slot indices to live connections for one shard. Released
// indices are recycled through a FIFO free list; indices never handed out
// come from the high-water cursor. Each release bumps the slot's generation
// so late poller events for a destroyed connection can be recognised.
type slotTable struct {
	conns []*Conn
	gens  []uint32
	free  *queue.Queue
	next  int
	live  int
}

func newSlotTable(capacity int) *slotTable {
	return &slotTable{
		conns: make([]*Conn, capacity),
		gens:  make([]uint32, capacity),
		free:  queue.New(),
	}
}

// alloc reserves a slot and returns it with its current generation.
func (s *slotTable) alloc() (slot, gen uint32, ok bool) {
	switch {
	case s.free.Length() > 0:
		slot = s.free.Remove().(uint32)
	case s.next < len(s.conns):
		slot = uint32(s.next)
		s.next++
	default:
		return 0, 0, false
	}
	return slot, s.gens[slot], true
}

// bind stores c in a slot obtained from alloc.
func (s *slotTable) bind(slot uint32, c *Conn) {
	s.conns[slot] = c
	s.live++
}

// release clears the slot, bumps its generation and recycles the index.
func (s *slotTable) release(slot uint32) {
	if s.conns[slot] != nil {
		s.conns[slot] = nil
		s.live--
	}
	s.gens[slot]++
	s.free.Add(slot)
}

// lookup returns the connection for (slot, gen), or nil when the tag is stale.
func (s *slotTable) lookup(slot, gen uint32) *Conn {
	if int(slot) >= s.next || s.gens[slot] != gen {
		return nil
	}
	return s.conns[slot]
}

// forEach visits every live connection; fn may release the visited slot.
func (s *slotTable) forEach(fn func(*Conn)) {
	for i := 0; i < s.next; i++ {
		if c := s.conns[i]; c != nil {
			fn(c)
		}
	}
}

func (s *slotTable) len() int { return s.live }

func (s *slotTable) capacity() int { return len(s.conns) }
