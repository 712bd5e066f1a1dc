// Package state manages the editable group sequence: a copy-on-write store
// driven by typed edit commands, and a session that debounces validation and
// preview work around it.
package state

import (
	"fmt"

	"github.com/google/uuid"

	"barsheet/layout"
)

// Command is one explicit edit to the group sequence. Each variant carries a
// strongly typed payload and is dispatched through the store's reducer.
type Command interface{ isCommand() }

// AddGroup appends a new group with default grid counts.
type AddGroup struct{}

// RemoveGroup deletes the group with the given ID.
type RemoveGroup struct{ ID string }

// SetImageRef replaces a group's image reference. The reducer resets the
// group's validation state to unvalidated and clears its resolved URL; any
// change to the reference always re-triggers validation.
type SetImageRef struct {
	ID  string
	Ref string
}

// SetTitle replaces a group's caption.
type SetTitle struct {
	ID    string
	Title string
}

// SetRepeatX sets the horizontal repeat count.
type SetRepeatX struct {
	ID string
	N  int
}

// SetRepeatY sets the vertical repeat count.
type SetRepeatY struct {
	ID string
	N  int
}

// SetMarginTop sets the blank space above the group, clamped to
// non-negative inches.
type SetMarginTop struct {
	ID     string
	Inches float64
}

func (AddGroup) isCommand()     {}
func (RemoveGroup) isCommand()  {}
func (SetImageRef) isCommand()  {}
func (SetTitle) isCommand()     {}
func (SetRepeatX) isCommand()   {}
func (SetRepeatY) isCommand()   {}
func (SetMarginTop) isCommand() {}

// Store holds the ordered group sequence. Mutations replace the slice
// wholesale, so a snapshot handed to a render pass stays consistent even if
// later edits land while the pass runs.
type Store struct {
	groups []layout.Group
	// revs guards against stale resolution results: each edit to a
	// group's image reference bumps its revision, and a resolution result
	// is applied only if the revision it was started for is still
	// current.
	revs map[string]uint64
}

// NewStore creates an empty store. An empty sequence is legal and renders a
// blank page.
func NewStore() *Store {
	return &Store{revs: map[string]uint64{}}
}

// Snapshot returns a copy of the current sequence.
func (s *Store) Snapshot() []layout.Group {
	out := make([]layout.Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// Len returns the number of groups.
func (s *Store) Len() int { return len(s.groups) }

// Revision returns the current edit revision for a group's image reference.
func (s *Store) Revision(id string) uint64 { return s.revs[id] }

// Apply runs one command through the reducer and returns the affected group
// ID (empty for removals).
func (s *Store) Apply(cmd Command) (string, error) {
	switch c := cmd.(type) {
	case AddGroup:
		g := layout.Group{
			ID:          uuid.NewString(),
			Validation:  layout.ValidationUnvalidated,
			RepeatX:     layout.DefaultRepeatX,
			RepeatY:     layout.DefaultRepeatY,
			MarginTopIn: layout.DefaultMarginTopIn,
		}
		if len(s.groups) == 0 {
			g.MarginTopIn = layout.DefaultFirstMarginTopIn
		}
		s.groups = append(s.Snapshot(), g)
		return g.ID, nil
	case RemoveGroup:
		next := make([]layout.Group, 0, len(s.groups))
		found := false
		for _, g := range s.groups {
			if g.ID == c.ID {
				found = true
				continue
			}
			next = append(next, g)
		}
		if !found {
			return "", fmt.Errorf("state: unknown group %s", c.ID)
		}
		s.groups = next
		delete(s.revs, c.ID)
		return "", nil
	case SetImageRef:
		return c.ID, s.update(c.ID, func(g *layout.Group) {
			g.ImageRef = c.Ref
			g.ResolvedURL = ""
			g.Validation = layout.ValidationUnvalidated
			s.revs[c.ID]++
		})
	case SetTitle:
		return c.ID, s.update(c.ID, func(g *layout.Group) { g.Title = c.Title })
	case SetRepeatX:
		return c.ID, s.update(c.ID, func(g *layout.Group) { g.RepeatX = c.N })
	case SetRepeatY:
		return c.ID, s.update(c.ID, func(g *layout.Group) { g.RepeatY = c.N })
	case SetMarginTop:
		return c.ID, s.update(c.ID, func(g *layout.Group) { g.MarginTopIn = max(c.Inches, 0) })
	default:
		return "", fmt.Errorf("state: unknown command %T", cmd)
	}
}

// MarkPending flips a group to pending validation without bumping its
// revision; the pending state belongs to the revision being validated.
func (s *Store) MarkPending(id string) error {
	return s.update(id, func(g *layout.Group) { g.Validation = layout.ValidationPending })
}

// ApplyResolution records a resolution result for a group, but only when rev
// still matches the group's current revision. Stale results from resolutions
// that raced a newer edit are dropped; the method reports whether the result
// was applied.
func (s *Store) ApplyResolution(id string, rev uint64, resolvedURL string, ok bool) bool {
	if s.revs[id] != rev {
		return false
	}
	err := s.update(id, func(g *layout.Group) {
		if ok {
			g.ResolvedURL = resolvedURL
			g.Validation = layout.ValidationValid
		} else {
			g.ResolvedURL = ""
			g.Validation = layout.ValidationInvalid
		}
	})
	return err == nil
}

// Group returns a copy of the group with the given ID.
func (s *Store) Group(id string) (layout.Group, bool) {
	for _, g := range s.groups {
		if g.ID == id {
			return g, true
		}
	}
	return layout.Group{}, false
}

func (s *Store) update(id string, mutate func(*layout.Group)) error {
	next := s.Snapshot()
	for i := range next {
		if next[i].ID == id {
			mutate(&next[i])
			s.groups = next
			return nil
		}
	}
	return fmt.Errorf("state: unknown group %s", id)
}
