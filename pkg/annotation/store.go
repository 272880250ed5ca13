package annotation

import "slices"

// Store is the ordered collection of committed annotations. Insertion order
// is creation order and undo order.
//
// Every mutation builds a new sequence and swaps it in, so a snapshot handed
// out by All or to a subscriber is never modified afterwards. Callers must
// treat snapshots, including the Points of polygons inside them, as read-only.
type Store struct {
	items  []Annotation
	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func([]Annotation)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items: make([]Annotation, 0),
	}
}

// All returns the current snapshot.
func (s *Store) All() []Annotation {
	return s.items
}

// Len returns the number of committed annotations.
func (s *Store) Len() int {
	return len(s.items)
}

// Get returns the annotation with the given id.
func (s *Store) Get(id ID) (Annotation, bool) {
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return s.items[i], true
}

// Last returns the most recently added annotation.
func (s *Store) Last() (Annotation, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Store) index(id ID) int {
	for i, a := range s.items {
		if a.AnnotationID() == id {
			return i
		}
	}
	return -1
}

// Subscribe registers fn to receive every new snapshot. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func([]Annotation)) func() {
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

// Replace swaps in a whole new sequence.
func (s *Store) Replace(items []Annotation) {
	next := slices.Clone(items)
	if next == nil {
		next = make([]Annotation, 0)
	}
	s.set(next)
}

// Update applies fn to the current snapshot and stores its result.
func (s *Store) Update(fn func(prev []Annotation) []Annotation) {
	s.Replace(fn(s.items))
}

// Append adds a to the end of the sequence.
func (s *Store) Append(a Annotation) {
	next := make([]Annotation, len(s.items), len(s.items)+1)
	copy(next, s.items)
	s.set(append(next, a))
}

// UpdateByID replaces the annotation with the given id by fn's result.
// When fn fails the store is left untouched and the error returned.
func (s *Store) UpdateByID(id ID, fn func(Annotation) (Annotation, error)) error {
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	updated, err := fn(s.items[i])
	if err != nil {
		return err
	}
	next := slices.Clone(s.items)
	next[i] = updated
	s.set(next)
	return nil
}

// RemoveLast drops the most recently added annotation and returns it.
// It is a no-op on an empty store.
func (s *Store) RemoveLast() (Annotation, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	last := s.items[len(s.items)-1]
	s.set(slices.Clone(s.items[:len(s.items)-1]))
	return last, true
}

func (s *Store) set(next []Annotation) {
	s.items = next
	for _, sub := range slices.Clone(s.subs) {
		sub.fn(next)
	}
}
