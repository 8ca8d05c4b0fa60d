package scope

import "github.com/vanderheijden86/pricescope/pkg/model"

// Selection is the set of selected ids for one dimension.
//
// Group ids and hierarchy ids never coexist. At most one group is selected at
// a time, while hierarchy nodes are multi-select. Descendants of a selected
// node are never stored; see NodeState for how they render.
type Selection struct {
	ids    model.IDSet
	order  []string // ids in the order they were selected
	locked bool
}

// NewSelection returns an empty, unlocked selection.
func NewSelection() *Selection {
	return &Selection{ids: model.NewIDSet()}
}

// Toggle applies a user click on id. It is a no-op while locked.
func (s *Selection) Toggle(id string) {
	if s.locked || id == "" {
		return
	}
	if model.IsGroupKey(id) {
		s.ids = model.NewIDSet(id)
		s.order = []string{id}
		return
	}
	kept := s.order[:0]
	for _, existing := range s.order {
		if model.IsGroupKey(existing) {
			delete(s.ids, existing)
			continue
		}
		kept = append(kept, existing)
	}
	s.order = kept
	if s.ids.Toggle(id) {
		s.order = append(s.order, id)
		return
	}
	s.order = removeID(s.order, id)
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Replace sets the selection wholesale, bypassing the lock. Used when a
// panel predetermines the scope.
func (s *Selection) Replace(ids ...string) {
	s.ids = model.NewIDSet()
	s.order = nil
	for _, id := range ids {
		if id != "" && !s.ids.Has(id) {
			s.ids.Add(id)
			s.order = append(s.order, id)
		}
	}
}

// Clear empties the selection regardless of the lock.
func (s *Selection) Clear() {
	s.ids = model.NewIDSet()
	s.order = nil
}

// IDs returns a copy of the selected ids.
func (s *Selection) IDs() model.IDSet {
	return s.ids.Clone()
}

// Has reports whether id is directly selected.
func (s *Selection) Has(id string) bool { return s.ids.Has(id) }

// Len is the number of selected ids.
func (s *Selection) Len() int { return s.ids.Len() }

// First returns the earliest selected id still in the selection, used when
// a single representative is needed (chat context, summaries).
func (s *Selection) First() (string, bool) {
	if len(s.order) == 0 {
		return "", false
	}
	return s.order[0], true
}

// Ordered returns the selected ids in selection order.
func (s *Selection) Ordered() []string {
	return append([]string(nil), s.order...)
}

// SelectedGroup returns the numeric id of the selected group, if any.
func (s *Selection) SelectedGroup() (int, bool) {
	for id := range s.ids {
		if gid, ok := model.ParseGroupKey(id); ok {
			return gid, true
		}
	}
	return 0, false
}

// Lock makes the selection read-only.
func (s *Selection) Lock() { s.locked = true }

// Unlock makes the selection editable again.
func (s *Selection) Unlock() { s.locked = false }

// Locked reports whether toggles are currently ignored.
func (s *Selection) Locked() bool { return s.locked }

// NodeDisplay is how a single tree row renders its selection checkbox.
type NodeDisplay struct {
	Direct    bool
	Inherited bool
	CanToggle bool
}

// Selected reports whether the row renders as selected at all.
func (d NodeDisplay) Selected() bool { return d.Direct || d.Inherited }

// NodeState computes the display state of a row. ancestorSelected says
// whether any strict ancestor is directly selected.
func (s *Selection) NodeState(id string, ancestorSelected, readOnly bool) NodeDisplay {
	direct := s.ids.Has(id)
	inherited := !readOnly && ancestorSelected && !direct
	return NodeDisplay{
		Direct:    direct,
		Inherited: inherited,
		CanToggle: !readOnly && !inherited,
	}
}
