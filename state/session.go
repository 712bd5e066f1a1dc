package state

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/bep/debounce"
	"go.uber.org/zap"

	"barsheet/export"
	"barsheet/layout"
	"barsheet/renderer"
	"barsheet/resolve"
)

// Default quiet periods: rapid edits cancel and restart the pending timer
// rather than queuing multiple passes.
const (
	DefaultValidateAfter = 500 * time.Millisecond
	DefaultPreviewAfter  = 300 * time.Millisecond
)

// PreviewFunc receives each finished preview surface. renderErr is nil on
// success; on failure the surface carries the translucent error tint and a
// subsequent successful render clears the error.
type PreviewFunc func(img image.Image, renderErr error)

// Options wires a session's collaborators.
type Options struct {
	Resolver  *resolve.Client
	Loader    layout.ImageLoader
	Renderer  renderer.Renderer
	Target    renderer.Target
	OnPreview PreviewFunc
	Logger    *zap.Logger

	ValidateAfter time.Duration
	PreviewAfter  time.Duration
}

// Session owns one editing stream: the group store, the debounced validation
// and preview triggers, and the export guard. All entry points are safe for
// concurrent use; debounce callbacks fire on timer goroutines.
type Session struct {
	mu    sync.Mutex
	store *Store

	resolver  *resolve.Client
	loader    layout.ImageLoader
	rend      renderer.Renderer
	target    renderer.Target
	onPreview PreviewFunc
	log       *zap.Logger

	debValidate map[string]func(func())
	validAfter  time.Duration
	debPreview  func(func())

	exporting bool
}

// NewSession creates a session around an empty store.
func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ValidateAfter <= 0 {
		opts.ValidateAfter = DefaultValidateAfter
	}
	if opts.PreviewAfter <= 0 {
		opts.PreviewAfter = DefaultPreviewAfter
	}
	return &Session{
		store:       NewStore(),
		resolver:    opts.Resolver,
		loader:      opts.Loader,
		rend:        opts.Renderer,
		target:      opts.Target,
		onPreview:   opts.OnPreview,
		log:         opts.Logger,
		debValidate: map[string]func(func()){},
		validAfter:  opts.ValidateAfter,
		debPreview:  debounce.New(opts.PreviewAfter),
	}
}

// Snapshot returns a consistent copy of the group sequence.
func (s *Session) Snapshot() []layout.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// Dispatch applies one edit command, then schedules debounced validation
// (when the edit changed an image reference to a non-empty value) and a
// debounced preview re-render.
func (s *Session) Dispatch(cmd Command) error {
	s.mu.Lock()
	id, err := s.store.Apply(cmd)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var deb func(func())
	var rev uint64
	if ref, ok := cmd.(SetImageRef); ok && ref.Ref != "" {
		rev = s.store.Revision(id)
		deb = s.validationDebouncer(id)
	}
	s.mu.Unlock()

	if deb != nil {
		deb(func() { s.validate(id, rev) })
	}
	s.SchedulePreview()
	return nil
}

// SchedulePreview arms the preview debounce timer, replacing any pending one.
func (s *Session) SchedulePreview() {
	if s.onPreview == nil || s.rend == nil || s.loader == nil {
		return
	}
	s.debPreview(s.renderPreview)
}

// validationDebouncer returns the per-group validation timer; each group is
// its own input stream, so edits to one group never reset another's timer.
func (s *Session) validationDebouncer(id string) func(func()) {
	deb, ok := s.debValidate[id]
	if !ok {
		deb = debounce.New(s.validAfter)
		s.debValidate[id] = deb
	}
	return deb
}

// validate resolves a group's image reference. The result is applied only if
// the group's revision still matches the one the resolution was started for,
// so a stale result never overwrites a newer edit.
func (s *Session) validate(id string, rev uint64) {
	if s.resolver == nil {
		return
	}
	s.mu.Lock()
	g, ok := s.store.Group(id)
	if !ok || s.store.Revision(id) != rev {
		s.mu.Unlock()
		return
	}
	if err := s.store.MarkPending(id); err != nil {
		s.mu.Unlock()
		return
	}
	token := g.ImageRef
	s.mu.Unlock()

	resolved, err := s.resolver.Resolve(context.Background(), token)

	s.mu.Lock()
	applied := s.store.ApplyResolution(id, rev, resolved, err == nil)
	s.mu.Unlock()

	switch {
	case !applied:
		s.log.Debug("dropped stale resolution", zap.String("group", id), zap.Uint64("rev", rev))
	case err != nil:
		s.log.Info("group validation failed", zap.String("group", id), zap.Error(err))
	default:
		s.log.Debug("group validated", zap.String("group", id), zap.String("url", layout.TruncateURL(resolved)))
	}
	if applied {
		s.SchedulePreview()
	}
}

// renderPreview runs one full layout+draw pass against the preview target.
// On failure the partially drawn page is delivered under the error tint so a
// stale successful render is never left on screen.
func (s *Session) renderPreview() {
	groups := s.Snapshot()
	plan, composeErr := layout.Compose(context.Background(), groups, layout.BuildOptions{Loader: s.loader})
	img, renderErr := s.rend.Render(plan, s.target)
	err := composeErr
	if err == nil {
		err = renderErr
	}
	if err != nil {
		s.onPreview(renderer.TintError(img, s.target), err)
		return
	}
	s.onPreview(img, nil)
}

// ExportAllowed reports whether an export may start: at least one group, no
// export in flight, every group valid with positive repeat counts.
func (s *Session) ExportAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportAllowedLocked()
}

func (s *Session) exportAllowedLocked() bool {
	if s.exporting || s.store.Len() == 0 {
		return false
	}
	for _, g := range s.store.Snapshot() {
		if g.Validation != layout.ValidationValid || g.RepeatX <= 0 || g.RepeatY <= 0 {
			return false
		}
	}
	return true
}

// Export runs the export pipeline once at full resolution. It fails without
// rendering when export is disabled, and only one export runs at a time.
func (s *Session) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if !s.exportAllowedLocked() {
		s.mu.Unlock()
		return nil, fmt.Errorf("state: export is disabled")
	}
	s.exporting = true
	groups := s.store.Snapshot()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.exporting = false
		s.mu.Unlock()
	}()
	return export.Sheet(ctx, groups, s.loader, s.rend)
}
