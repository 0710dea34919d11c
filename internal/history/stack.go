// Package history keeps per-panel back/forward stacks and the global list of
// recently visited directories.
package history

// DefaultLimit bounds each direction of a navigation stack.
const DefaultLimit = 50

// Snapshot is the persisted form of a Stack. Both slices are oldest first.
type Snapshot struct {
	Back    []string `json:"back"`
	Forward []string `json:"forward"`
}

// Stack is a bounded back/forward history for one panel. It is not safe for
// concurrent use; the owning panel serializes access.
//
// Replaying history (Back/Forward) moves entries between the two directions
// and never records, so stepping back and forth leaves the total size fixed.
type Stack struct {
	back    []string
	forward []string
	limit   int
}

// NewStack returns a stack bounded to limit entries per direction.
func NewStack(limit int) *Stack {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Stack{limit: limit}
}

// Record pushes previous, the location being left, onto the back stack and
// clears the forward stack. Empty paths are ignored.
func (s *Stack) Record(previous string) {
	if previous == "" {
		return
	}
	s.back = push(s.back, previous, s.limit)
	s.forward = s.forward[:0]
}

// Back pops the most recent back entry and pushes current onto forward.
func (s *Stack) Back(current string) (string, bool) {
	if len(s.back) == 0 {
		return "", false
	}
	target := s.back[len(s.back)-1]
	s.back = s.back[:len(s.back)-1]
	if current != "" {
		s.forward = push(s.forward, current, s.limit)
	}
	return target, true
}

// Forward pops the most recent forward entry and pushes current onto back.
func (s *Stack) Forward(current string) (string, bool) {
	if len(s.forward) == 0 {
		return "", false
	}
	target := s.forward[len(s.forward)-1]
	s.forward = s.forward[:len(s.forward)-1]
	if current != "" {
		s.back = push(s.back, current, s.limit)
	}
	return target, true
}

// JumpTo moves several steps at once to target, the most recent matching
// entry of either direction, with current joining the opposite side. The
// entries skipped over keep their order, so the combined size is unchanged.
// It reports false and leaves the stack alone when target is not present.
func (s *Stack) JumpTo(current, target string) bool {
	for i := len(s.back) - 1; i >= 0; i-- {
		if s.back[i] != target {
			continue
		}
		skipped := s.back[i+1:]
		if current != "" {
			s.forward = push(s.forward, current, s.limit)
		}
		for j := len(skipped) - 1; j >= 0; j-- {
			s.forward = push(s.forward, skipped[j], s.limit)
		}
		s.back = s.back[:i]
		return true
	}
	for i := len(s.forward) - 1; i >= 0; i-- {
		if s.forward[i] != target {
			continue
		}
		skipped := s.forward[i+1:]
		if current != "" {
			s.back = push(s.back, current, s.limit)
		}
		for j := len(skipped) - 1; j >= 0; j-- {
			s.back = push(s.back, skipped[j], s.limit)
		}
		s.forward = s.forward[:i]
		return true
	}
	return false
}

// CanBack reports whether Back would move.
func (s *Stack) CanBack() bool { return len(s.back) > 0 }

// CanForward reports whether Forward would move.
func (s *Stack) CanForward() bool { return len(s.forward) > 0 }

// Len returns the combined size of both directions.
func (s *Stack) Len() int { return len(s.back) + len(s.forward) }

// BackList returns up to limit back entries, most recent first.
func (s *Stack) BackList(limit int) []string { return recentFirst(s.back, limit) }

// ForwardList returns up to limit forward entries, most recent first.
func (s *Stack) ForwardList(limit int) []string { return recentFirst(s.forward, limit) }

// Clear drops both directions.
func (s *Stack) Clear() {
	s.back = nil
	s.forward = nil
}

// Snapshot copies the stack for persistence.
func (s *Stack) Snapshot() Snapshot {
	return Snapshot{
		Back:    append([]string(nil), s.back...),
		Forward: append([]string(nil), s.forward...),
	}
}

// Restore replaces the stack contents, keeping the newest entries when the
// snapshot exceeds the limit.
func (s *Stack) Restore(snap Snapshot) {
	s.back = clip(snap.Back, s.limit)
	s.forward = clip(snap.Forward, s.limit)
}

func push(list []string, v string, limit int) []string {
	list = append(list, v)
	if len(list) > limit {
		list = append(list[:0:0], list[len(list)-limit:]...)
	}
	return list
}

func clip(list []string, limit int) []string {
	var out []string
	for _, v := range list {
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func recentFirst(list []string, limit int) []string {
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]string, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out
}
