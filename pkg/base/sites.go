package base

import (
	"sync/atomic"
	"weak"

	"github.com/james-see/scorestream/pkg/common"
)

var nextAnchorID atomic.Uint64

// Anchor is a container's identity as seen from the Sites of its elements. Only the
// container holds it strongly; Sites keep weak pointers, so an element never keeps
// its containers alive.
type Anchor struct {
	id    uint64
	owner Container
}

// NewAnchor creates a fresh identity for owner. Ids are never reused.
func NewAnchor(owner Container) *Anchor {
	return &Anchor{id: nextAnchorID.Add(1), owner: owner}
}

// ID returns the anchor's unique identifier.
func (a *Anchor) ID() uint64 {
	return a.id
}

// Owner returns the container the anchor identifies.
func (a *Anchor) Owner() Container {
	return a.owner
}

// Container is anything elements can be placed into.
type Container interface {
	SiteAnchor() *Anchor
}

// ledgers this long are purged before growing further
const purgeThreshold = 64

type siteEntry struct {
	id     uint64
	ref    weak.Pointer[Anchor]
	offset float64
}

// Sites records the offset of an element in each container holding it, in order of
// first insertion. Entries for collected containers are skipped and dropped by Purge.
type Sites struct {
	entries []*siteEntry
	index   map[uint64]*siteEntry
}

func (s *Sites) set(a *Anchor, offset float64) {
	if s.index == nil {
		s.index = make(map[uint64]*siteEntry)
	}
	if e, ok := s.index[a.id]; ok {
		e.offset = offset
		return
	}
	if len(s.entries) >= purgeThreshold {
		s.Purge()
	}
	e := &siteEntry{id: a.id, ref: weak.Make(a), offset: offset}
	s.entries = append(s.entries, e)
	s.index[a.id] = e
}

// Offset returns the offset recorded for c.
func (s *Sites) Offset(c Container) (float64, error) {
	a := c.SiteAnchor()
	if e, ok := s.index[a.id]; ok {
		return e.offset, nil
	}
	return 0, common.NotFoundf("element is not in container %d", a.id)
}

// Has reports whether an entry for c exists.
func (s *Sites) Has(c Container) bool {
	_, ok := s.index[c.SiteAnchor().id]
	return ok
}

// Remove deletes the entry for c and reports whether there was one.
func (s *Sites) Remove(c Container) bool {
	id := c.SiteAnchor().id
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return true
}

// Containers returns the live containers in insertion order.
func (s *Sites) Containers() []Container {
	var out []Container
	for _, e := range s.entries {
		if a := e.ref.Value(); a != nil {
			out = append(out, a.owner)
		}
	}
	return out
}

// Len counts the live entries.
func (s *Sites) Len() int {
	n := 0
	for _, e := range s.entries {
		if e.ref.Value() != nil {
			n++
		}
	}
	return n
}

// Purge drops entries whose container has been collected and returns how many
// were removed.
func (s *Sites) Purge() int {
	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.ref.Value() == nil {
			delete(s.index, e.id)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	if removed > 0 {
		common.Logger().Debug("purged stale sites", "count", removed)
	}
	return removed
}

// Clear removes every entry.
func (s *Sites) Clear() {
	s.entries = nil
	s.index = nil
}
