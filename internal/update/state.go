package update

import "sync/atomic"

// State holds the most recent list of available updates. The list is only
// ever replaced whole, so readers see either the previous or the new list.
type State struct {
	current atomic.Pointer[[]Record]
}

// Replace swaps in a new list of updates.
func (s *State) Replace(records []Record) {
	cp := append([]Record(nil), records...)
	s.current.Store(&cp)
}

// Snapshot returns a copy of the current list. It is nil before the first
// successful check.
func (s *State) Snapshot() []Record {
	p := s.current.Load()
	if p == nil {
		return nil
	}
	out := make([]Record, len(*p))
	copy(out, *p)
	return out
}

// Checked reports whether any list has been stored yet.
func (s *State) Checked() bool {
	return s.current.Load() != nil
}

// Lookup returns the stored update for a module.
func (s *State) Lookup(id string) (Record, bool) {
	p := s.current.Load()
	if p == nil {
		return Record{}, false
	}
	for _, rec := range *p {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}
