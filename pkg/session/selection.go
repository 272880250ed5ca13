package session

import (
	"errors"

	"github.com/ha1tch/imgmark/pkg/annotation"
)

// ErrNotEditing is returned when a commit does not match the field being
// edited.
var ErrNotEditing = errors.New("field is not being edited")

// Edit is a text field under edit. Draft is held here until commit.
type Edit struct {
	ID    annotation.ID
	Field annotation.Field
	Draft string
}

// Selection tracks the selected and expanded annotations and the single
// field under edit.
type Selection struct {
	store *annotation.Store

	selected    annotation.ID
	hasSelected bool
	expanded    annotation.ID
	hasExpanded bool
	edit        *Edit

	unsubscribe func()
}

// NewSelection creates a controller for store. It forgets selection,
// expansion and edits of annotations that leave the store.
func NewSelection(store *annotation.Store) *Selection {
	s := &Selection{store: store}
	s.unsubscribe = store.Subscribe(s.prune)
	return s
}

// Close detaches the controller from the store.
func (s *Selection) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Selection) prune(items []annotation.Annotation) {
	exists := func(id annotation.ID) bool {
		for _, a := range items {
			if a.AnnotationID() == id {
				return true
			}
		}
		return false
	}
	if s.hasSelected && !exists(s.selected) {
		s.hasSelected = false
	}
	if s.hasExpanded && !exists(s.expanded) {
		s.hasExpanded = false
	}
	if s.edit != nil && !exists(s.edit.ID) {
		s.edit = nil
	}
}

// Select marks id as the selected annotation.
func (s *Selection) Select(id annotation.ID) {
	s.selected = id
	s.hasSelected = true
}

// Clear removes the selection.
func (s *Selection) Clear() {
	s.hasSelected = false
}

// Selected returns the selected annotation id.
func (s *Selection) Selected() (annotation.ID, bool) {
	return s.selected, s.hasSelected
}

// IsSelected reports whether id is selected.
func (s *Selection) IsSelected(id annotation.ID) bool {
	return s.hasSelected && s.selected == id
}

// Expand toggles the expanded row. Expanding collapses any other row and
// leaves edit mode.
func (s *Selection) Expand(id annotation.ID) {
	if s.hasExpanded && s.expanded == id {
		s.hasExpanded = false
	} else {
		s.expanded = id
		s.hasExpanded = true
	}
	s.edit = nil
}

// IsExpanded reports whether id is expanded.
func (s *Selection) IsExpanded(id annotation.ID) bool {
	return s.hasExpanded && s.expanded == id
}

// Expanded returns the expanded annotation id.
func (s *Selection) Expanded() (annotation.ID, bool) {
	return s.expanded, s.hasExpanded
}

// BeginEdit puts field of id into edit mode, seeding the draft with the
// stored value. Any other edit in progress is discarded.
func (s *Selection) BeginEdit(id annotation.ID, field annotation.Field) error {
	a, ok := s.store.Get(id)
	if !ok {
		return annotation.ErrNotFound
	}
	value, err := annotation.FieldValue(a, field)
	if err != nil {
		return err
	}
	s.edit = &Edit{ID: id, Field: field, Draft: value}
	return nil
}

// ChangeEdit replaces the draft value. It does nothing outside edit mode.
func (s *Selection) ChangeEdit(value string) {
	if s.edit != nil {
		s.edit.Draft = value
	}
}

// CommitEdit writes the draft into the annotation and leaves edit mode.
func (s *Selection) CommitEdit(id annotation.ID, field annotation.Field) error {
	if s.edit == nil || s.edit.ID != id || s.edit.Field != field {
		return ErrNotEditing
	}
	draft := s.edit.Draft
	err := s.store.UpdateByID(id, func(a annotation.Annotation) (annotation.Annotation, error) {
		return annotation.WithField(a, field, draft)
	})
	if err != nil {
		return err
	}
	s.edit = nil
	return nil
}

// CancelEdit discards the draft.
func (s *Selection) CancelEdit() {
	s.edit = nil
}

// Editing returns the field under edit.
func (s *Selection) Editing() (Edit, bool) {
	if s.edit == nil {
		return Edit{}, false
	}
	return *s.edit, true
}
