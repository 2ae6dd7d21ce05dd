package slots

import "fmt"

// UnknownSlotError reports an access to a slot id outside the fixed schema.
// This is a schema mismatch between the extraction vocabulary and the agent's
// slot set and is always surfaced, never silently dropped.
type UnknownSlotError struct {
	ID string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("unknown slot id %q", e.ID)
}

// Definition declares one slot of the agent's fixed schema.
type Definition struct {
	ID          string
	Description string
}

// Slot is one named fact with an optional value. A nil Value marshals as JSON
// null, marking the fact as still unknown.
type Slot struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Value       *string `json:"value"`
}

// DefaultDefinitions returns the slot schema of the potato advisory bot.
func DefaultDefinitions() []Definition {
	return []Definition{
		{ID: "last_spray_date", Description: "When did the farmer last spray his or her potatoes?"},
		{ID: "location", Description: "What is the location of the farm?"},
		{ID: "potato_variety", Description: "Which potato variety does the farmer use?"},
	}
}

// Store holds the ordered slot set of one agent. The schema is fixed at
// construction; only values mutate afterwards.
//
// Store is not safe for concurrent use. The owning Agent serializes turns
// with its own mutex, so no locking happens here.
type Store struct {
	slots []Slot
	index map[string]int
}

// NewStore creates a store with every slot unset.
func NewStore(defs []Definition) *Store {
	s := &Store{
		slots: make([]Slot, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		s.index[d.ID] = len(s.slots)
		s.slots = append(s.slots, Slot{ID: d.ID, Description: d.Description})
	}
	return s
}

// Fill sets the value of the slot with the given id. Filling an already set
// slot overwrites its value. Unknown ids fail hard with UnknownSlotError.
func (s *Store) Fill(id, value string) error {
	i, ok := s.index[id]
	if !ok {
		return &UnknownSlotError{ID: id}
	}
	v := value
	s.slots[i].Value = &v
	return nil
}

// Value returns the current value of a slot and whether it has been set.
func (s *Store) Value(id string) (string, bool, error) {
	i, ok := s.index[id]
	if !ok {
		return "", false, &UnknownSlotError{ID: id}
	}
	if s.slots[i].Value == nil {
		return "", false, nil
	}
	return *s.slots[i].Value, true, nil
}

// AllFilled reports whether every slot has a value.
func (s *Store) AllFilled() bool {
	for _, sl := range s.slots {
		if sl.Value == nil {
			return false
		}
	}
	return true
}

// Snapshot returns a deep copy of all slots. The copy shares no mutable
// structure with the live store, so later fills never alter it.
func (s *Store) Snapshot() []Slot {
	out := make([]Slot, len(s.slots))
	for i, sl := range s.slots {
		out[i] = Slot{ID: sl.ID, Description: sl.Description}
		if sl.Value != nil {
			v := *sl.Value
			out[i].Value = &v
		}
	}
	return out
}

// Clone returns an independent copy of the store. Turns stage extraction
// results on a clone and commit it only after generation succeeds.
func (s *Store) Clone() *Store {
	c := &Store{
		slots: s.Snapshot(),
		index: make(map[string]int, len(s.index)),
	}
	for id, i := range s.index {
		c.index[id] = i
	}
	return c
}
