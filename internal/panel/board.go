package panel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/service"
)

var (
	// ErrUnknownPanel indicates a command targeted a category without a panel.
	ErrUnknownPanel = errors.New("unknown panel category")
	// ErrEntryNotLoaded indicates an edit targeted an entry missing from the fetched bucket.
	ErrEntryNotLoaded = errors.New("entry not loaded in panel")
)

// Board is the top-level view of one session: the resolved teacher, the bucketed
// entries and one panel per category. Remote calls never run under the lock.
type Board struct {
	resolver service.TeacherResolver
	entries  service.TeachingLearningService
	logger   zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	actor     service.ActivityActor
	teacherID string
	resolved  bool
	groups    dto.TeachingLearningGroupsResponse
	order     []string
	panels    map[string]*Panel
	lastErr   string
	fetchSeq  uint64
	applied   uint64
}

// NewBoard builds an unresolved board with collapsed panels and all-empty buckets.
func NewBoard(resolver service.TeacherResolver, entries service.TeachingLearningService, logger zerolog.Logger) *Board {
	order := models.TeachingLearningCategories()
	panels := make(map[string]*Panel, len(order))
	for _, category := range order {
		panels[category] = NewPanel(category)
	}

	return &Board{
		resolver: resolver,
		entries:  entries,
		logger:   logger.With().Str("component", "panel_board").Logger(),
		now:      time.Now,
		groups:   dto.EmptyTeachingLearningGroups(""),
		order:    order,
		panels:   panels,
	}
}

// Start resolves the session user's teacher once and performs the first fetch.
// Without a session user it does nothing. When the teacher cannot be resolved the
// board keeps its empty state and never queries entries.
func (b *Board) Start(ctx context.Context, actor service.ActivityActor) error {
	if strings.TrimSpace(actor.ID) == "" {
		return nil
	}

	b.mu.Lock()
	if b.resolved {
		b.mu.Unlock()
		return b.Refresh(ctx)
	}
	b.actor = actor
	b.mu.Unlock()

	teacherID, err := b.resolver.Resolve(ctx, actor.ID)
	if err != nil {
		b.logger.Warn().Err(err).Str("user_id", actor.ID).Msg("teacher resolution failed")
		b.setError(err)
		return err
	}

	b.mu.Lock()
	b.teacherID = teacherID
	b.resolved = true
	b.groups.TeacherID = teacherID
	b.mu.Unlock()

	return b.Refresh(ctx)
}

// TeacherID returns the resolved teacher identifier, empty until resolution succeeds.
func (b *Board) TeacherID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.teacherID
}

// Refresh re-fetches every bucket. A failed fetch keeps the previous state; a fetch
// that completes after a newer one has been applied is discarded.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	if !b.resolved {
		b.mu.Unlock()
		return nil
	}
	b.fetchSeq++
	seq := b.fetchSeq
	teacherID := b.teacherID
	b.mu.Unlock()

	groups, err := b.entries.ListGrouped(ctx, teacherID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.logger.Error().Err(err).Str("teacher_id", teacherID).Msg("failed to fetch entries")
		b.lastErr = "failed to load entries"
		return err
	}
	if seq <= b.applied {
		return nil
	}

	b.applied = seq
	b.groups = groups
	return nil
}

// Apply executes one client command and records its error, if any, for the next snapshot.
func (b *Board) Apply(ctx context.Context, cmd dto.BoardCommand) error {
	err := b.apply(ctx, cmd)
	if err != nil {
		b.setError(err)
		return err
	}
	b.setError(nil)
	return nil
}

func (b *Board) apply(ctx context.Context, cmd dto.BoardCommand) error {
	switch cmd.Type {
	case dto.BoardCommandRefresh:
		return b.Refresh(ctx)
	case dto.BoardCommandToggleViewMore:
		return b.withPanel(cmd.Category, func(p *Panel) error {
			p.ToggleViewMore()
			return nil
		})
	case dto.BoardCommandToggleForm:
		return b.withPanel(cmd.Category, func(p *Panel) error {
			p.ToggleForm()
			return nil
		})
	case dto.BoardCommandCancel:
		return b.withPanel(cmd.Category, func(p *Panel) error {
			p.Cancel()
			return nil
		})
	case dto.BoardCommandEdit:
		return b.withPanel(cmd.Category, func(p *Panel) error {
			for _, entry := range b.groups.Group(p.Category()).Items {
				if entry.ID == cmd.EntryID {
					p.BeginEdit(entry)
					return nil
				}
			}
			return ErrEntryNotLoaded
		})
	case dto.BoardCommandSave:
		return b.Save(ctx, cmd.Category, FormDataFromDTO(cmd.Form))
	case dto.BoardCommandDelete:
		return b.Delete(ctx, cmd.EntryID)
	default:
		return errors.New("unsupported board command")
	}
}

// Save persists the panel form (create without ID, edit with ID), closes the form and re-fetches.
// On failure the form stays open with the submitted values.
func (b *Board) Save(ctx context.Context, category string, form FormData) error {
	b.mu.Lock()
	p, ok := b.panels[category]
	if !ok {
		b.mu.Unlock()
		return ErrUnknownPanel
	}
	if !b.resolved {
		b.mu.Unlock()
		return service.ErrTeacherNotFound
	}
	p.SetForm(form)
	actor := b.actor
	teacherID := b.teacherID
	b.mu.Unlock()

	if _, err := b.entries.Save(ctx, actor, teacherID, form.Request(category)); err != nil {
		return err
	}

	b.mu.Lock()
	p.Cancel()
	b.mu.Unlock()

	return b.Refresh(ctx)
}

// Delete removes an entry and re-fetches.
func (b *Board) Delete(ctx context.Context, entryID string) error {
	b.mu.Lock()
	if !b.resolved {
		b.mu.Unlock()
		return service.ErrTeacherNotFound
	}
	actor := b.actor
	teacherID := b.teacherID
	b.mu.Unlock()

	if _, err := b.entries.Delete(ctx, actor, teacherID, entryID); err != nil {
		return err
	}

	return b.Refresh(ctx)
}

// Snapshot renders the whole board.
func (b *Board) Snapshot() dto.BoardSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	views := make([]dto.PanelView, 0, len(b.order))
	for _, category := range b.order {
		views = append(views, b.panels[category].View(b.groups.Group(category).Items))
	}

	return dto.BoardSnapshot{
		TeacherID:   b.teacherID,
		Resolved:    b.resolved,
		Panels:      views,
		Error:       b.lastErr,
		GeneratedAt: b.now().UTC(),
	}
}

// Groups returns the currently displayed buckets.
func (b *Board) Groups() dto.TeachingLearningGroupsResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.groups
}

func (b *Board) withPanel(category string, fn func(p *Panel) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.panels[category]
	if !ok {
		return ErrUnknownPanel
	}
	return fn(p)
}

func (b *Board) setError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.lastErr = ""
		return
	}
	b.lastErr = err.Error()
}
