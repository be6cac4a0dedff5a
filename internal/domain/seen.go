package domain

// SeenSet is the bounded record of already delivered ids. Ids are kept in
// insertion order so that trimming evicts the oldest entries first.
type SeenSet struct {
	ids   []string
	index map[string]struct{}
}

// NewSeenSet builds a set from ids ordered oldest first. Empty and duplicate
// ids are dropped, keeping the first occurrence.
func NewSeenSet(ids []string) *SeenSet {
	s := &SeenSet{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Contains reports whether id was already delivered.
func (s *SeenSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Add appends id as the newest entry. It returns false if id is empty or
// already present.
func (s *SeenSet) Add(id string) bool {
	if id == "" || s.Contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	s.index[id] = struct{}{}
	return true
}

// Trim drops the oldest ids until at most limit remain and returns how many
// were evicted. A non-positive limit leaves the set unbounded.
func (s *SeenSet) Trim(limit int) int {
	if limit <= 0 || len(s.ids) <= limit {
		return 0
	}
	evict := len(s.ids) - limit
	for _, id := range s.ids[:evict] {
		delete(s.index, id)
	}
	s.ids = append([]string(nil), s.ids[evict:]...)
	return evict
}

// Len returns the number of ids in the set.
func (s *SeenSet) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the ids, oldest first.
func (s *SeenSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
