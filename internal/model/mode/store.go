package mode

// Store exposes mode retrieval for the orchestrator and HTTP handlers.
type Store interface {
	List() []Mode
	FindByID(id ID) (Mode, bool)
	Default() Mode
}

// MemoryStore implements Store with an immutable in-memory slice.
type MemoryStore struct {
	items []Mode
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied modes.
func NewMemoryStore(items []Mode) *MemoryStore {
	return &MemoryStore{items: append([]Mode(nil), items...)}
}

// List returns the mode table.
func (s *MemoryStore) List() []Mode {
	return append([]Mode(nil), s.items...)
}

// FindByID looks up a mode by identifier.
func (s *MemoryStore) FindByID(id ID) (Mode, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Mode{}, false
}

// Default returns the exploratory dialogue mode every new session starts in.
func (s *MemoryStore) Default() Mode {
	if m, ok := s.FindByID(ExploratoryDialogue); ok {
		return m
	}
	return s.items[0]
}
