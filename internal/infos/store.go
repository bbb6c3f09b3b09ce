package infos

import "sync"

// Value is a decoded register value. Exactly one of the fields is set,
// determined by Kind.
type Value struct {
	Kind ValueKind
	Int  int64
	Flt  float64
	Str  string
}

// ValueKind discriminates the typed payload carried by a Value.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindInt
	KindFloat
	KindString
)

func IntValue(v int64) Value    { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Flt: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// Equal reports whether two values carry the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Flt == o.Flt
	case KindString:
		return v.Str == o.Str
	default:
		return true
	}
}

// Store is the nested register database: topic group -> register -> value,
// plus a set of topic groups that changed since the last publish.
//
// A Store is owned by exactly one Connection (the single-owner rule in the
// design document). Every method takes the store's mutex, so reads from
// another goroutine are safe.
type Store struct {
	mu      sync.Mutex
	values  map[Register]Value
	newData map[TopicGroup]bool
}

// NewStore returns an empty register store.
func NewStore() *Store {
	return &Store{
		values:  make(map[Register]Value),
		newData: make(map[TopicGroup]bool),
	}
}

// Get returns the current value for r and whether it has ever been set.
func (s *Store) Get(r Register) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[r]
	return v, ok
}

// GetInt returns the current integer value for r, or def if unset or not an
// integer-kind value.
func (s *Store) GetInt(r Register, def int64) int64 {
	v, ok := s.Get(r)
	if !ok || v.Kind != KindInt {
		return def
	}
	return v.Int
}

// GetFloat returns the current float value for r, or def if unset. Integer
// values are widened transparently since the wire format doesn't always
// distinguish them cleanly (ratios applied to integer registers yield
// floats).
func (s *Store) GetFloat(r Register, def float64) float64 {
	v, ok := s.Get(r)
	if !ok {
		return def
	}
	switch v.Kind {
	case KindFloat:
		return v.Flt
	case KindInt:
		return float64(v.Int)
	default:
		return def
	}
}

// GetString returns the current string value for r, or def if unset.
func (s *Store) GetString(r Register, def string) string {
	v, ok := s.Get(r)
	if !ok || v.Kind != KindString {
		return def
	}
	return v.Str
}

// SetDefault sets r to v only if it has never been set, mirroring the
// original's set_db_def_value (used for manufacturer strings and other
// constants established once at construction time).
func (s *Store) SetDefault(r Register, v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[r]; ok {
		return
	}
	s.values[r] = v
}

// Update stores v under r. It reports whether the stored value actually
// changed, and marks the register's topic group dirty when it did.
//
// Invariant: a value, once set, is only ever replaced by a value of the
// same Kind (strings are never silently coerced to numbers and vice
// versa). A Kind mismatch is treated as "no update" rather than an error,
// since a malformed/aliased dictionary entry must not corrupt unrelated
// state; callers that need to detect this tie it to Invalid_Data_Type via
// the caller-observed ok return.
func (s *Store) Update(r Register, v Value) (changed bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.values[r]
	if existed && old.Kind != KindNone && v.Kind != old.Kind {
		return false, false
	}
	if existed && old.Equal(v) {
		return false, true
	}
	s.values[r] = v
	s.newData[groupFor(r)] = true
	return true, true
}

// MarkDirty forces a topic group's new_data flag, used by handlers that
// change state outside of a dictionary-driven Update (e.g. the
// close-time inverter-offline heuristic).
func (s *Store) MarkDirty(g TopicGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newData[g] = true
}

// DirtyGroups returns and clears the set of topic groups that changed
// since the last call, for the MQTT publish step to iterate.
func (s *Store) DirtyGroups() []TopicGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := make([]TopicGroup, 0, len(s.newData))
	for g, dirty := range s.newData {
		if dirty {
			groups = append(groups, g)
		}
	}
	s.newData = make(map[TopicGroup]bool)
	return groups
}
