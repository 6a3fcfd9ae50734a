package panel_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/panel"
	"github.com/noah-isme/gema-teaching-api/internal/service"
)

type stubResolver struct {
	teacherID string
	err       error
	calls     int
}

func (s *stubResolver) Resolve(ctx context.Context, userID string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.teacherID, nil
}

type stubEntries struct {
	mu        sync.Mutex
	listCalls int
	list      func(call int, teacherID string) (dto.TeachingLearningGroupsResponse, error)
	saveErr   error
	saved     []dto.TeachingLearningRequest
	deleted   []string
}

func (s *stubEntries) Categories() []string {
	return models.TeachingLearningCategories()
}

func (s *stubEntries) ListGrouped(ctx context.Context, teacherID string) (dto.TeachingLearningGroupsResponse, error) {
	s.mu.Lock()
	s.listCalls++
	call := s.listCalls
	s.mu.Unlock()

	if s.list != nil {
		return s.list(call, teacherID)
	}
	groups := dto.EmptyTeachingLearningGroups(teacherID)
	groups.Resolved = true
	return groups, nil
}

func (s *stubEntries) Get(ctx context.Context, teacherID, id string) (dto.TeachingLearningResponse, error) {
	return dto.TeachingLearningResponse{}, service.ErrTeachingLearningNotFound
}

func (s *stubEntries) Save(ctx context.Context, actor service.ActivityActor, teacherID string, payload dto.TeachingLearningRequest) (dto.TeachingLearningMutationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return dto.TeachingLearningMutationResponse{}, s.saveErr
	}
	s.saved = append(s.saved, payload)
	return dto.TeachingLearningMutationResponse{Action: models.ActivityActionAdd, AuditRecorded: true}, nil
}

func (s *stubEntries) Delete(ctx context.Context, actor service.ActivityActor, teacherID, id string) (dto.TeachingLearningMutationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return dto.TeachingLearningMutationResponse{Action: models.ActivityActionDelete, AuditRecorded: true}, nil
}

func (s *stubEntries) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func groupsWith(teacherID string, entries ...dto.TeachingLearningResponse) dto.TeachingLearningGroupsResponse {
	groups := dto.EmptyTeachingLearningGroups(teacherID)
	groups.Resolved = true
	for _, entry := range entries {
		for i := range groups.Groups {
			if groups.Groups[i].Category == entry.Category {
				groups.Groups[i].Items = append(groups.Groups[i].Items, entry)
				groups.Groups[i].Count++
				groups.Total++
			}
		}
	}
	return groups
}

var teacherActor = service.ActivityActor{ID: "user-1", Role: "teacher"}

func newBoard(resolver service.TeacherResolver, entries service.TeachingLearningService) *panel.Board {
	return panel.NewBoard(resolver, entries, zerolog.New(io.Discard))
}

func TestBoardStartWithoutSessionDoesNothing(t *testing.T) {
	resolver := &stubResolver{teacherID: "teacher-1"}
	entries := &stubEntries{}
	board := newBoard(resolver, entries)

	require.NoError(t, board.Start(context.Background(), service.ActivityActor{}))
	require.Equal(t, 0, resolver.calls)
	require.Equal(t, 0, entries.calls())

	snapshot := board.Snapshot()
	require.False(t, snapshot.Resolved)
	require.Len(t, snapshot.Panels, 4)
	for _, view := range snapshot.Panels {
		require.Equal(t, 0, view.Count)
	}
}

func TestBoardStartTeacherNotFoundNeverFetches(t *testing.T) {
	resolver := &stubResolver{err: service.ErrTeacherNotFound}
	entries := &stubEntries{}
	board := newBoard(resolver, entries)

	err := board.Start(context.Background(), teacherActor)
	require.ErrorIs(t, err, service.ErrTeacherNotFound)
	require.Equal(t, 1, resolver.calls)
	require.Equal(t, 0, entries.calls())

	require.NoError(t, board.Refresh(context.Background()))
	require.Equal(t, 0, entries.calls())

	snapshot := board.Snapshot()
	require.False(t, snapshot.Resolved)
	require.Empty(t, snapshot.TeacherID)
	require.NotEmpty(t, snapshot.Error)
}

func TestBoardStartFetchesAndBuckets(t *testing.T) {
	resolver := &stubResolver{teacherID: "teacher-1"}
	entries := &stubEntries{
		list: func(call int, teacherID string) (dto.TeachingLearningGroupsResponse, error) {
			return groupsWith(teacherID,
				dto.TeachingLearningResponse{ID: "e1", Category: models.CategoryPedagogicalInnovations, Title: "Flipped Classroom"},
			), nil
		},
	}
	board := newBoard(resolver, entries)

	require.NoError(t, board.Start(context.Background(), teacherActor))
	require.Equal(t, "teacher-1", board.TeacherID())

	snapshot := board.Snapshot()
	require.True(t, snapshot.Resolved)
	require.Equal(t, models.CategoryPedagogicalInnovations, snapshot.Panels[1].Category)
	require.Equal(t, "1 Entries", snapshot.Panels[1].CountLabel)
	require.True(t, snapshot.Panels[1].ShowViewMore)
	require.Empty(t, snapshot.Panels[1].Entries)
	require.Equal(t, "0 Entries", snapshot.Panels[0].CountLabel)

	require.NoError(t, board.Apply(context.Background(), dto.BoardCommand{
		Type:     dto.BoardCommandToggleViewMore,
		Category: models.CategoryPedagogicalInnovations,
	}))
	snapshot = board.Snapshot()
	require.Len(t, snapshot.Panels[1].Entries, 1)
	require.Equal(t, "Flipped Classroom", snapshot.Panels[1].Entries[0].Title)
}

func TestBoardRefreshFailureKeepsPreviousState(t *testing.T) {
	resolver := &stubResolver{teacherID: "teacher-1"}
	entries := &stubEntries{
		list: func(call int, teacherID string) (dto.TeachingLearningGroupsResponse, error) {
			if call > 1 {
				return dto.TeachingLearningGroupsResponse{}, errors.New("store unavailable")
			}
			return groupsWith(teacherID,
				dto.TeachingLearningResponse{ID: "e1", Category: models.CategoryCourseDesign, Title: "Syllabus"},
			), nil
		},
	}
	board := newBoard(resolver, entries)
	require.NoError(t, board.Start(context.Background(), teacherActor))

	require.Error(t, board.Refresh(context.Background()))

	snapshot := board.Snapshot()
	require.Equal(t, 1, snapshot.Panels[0].Count)
	require.NotEmpty(t, snapshot.Error)
}

func TestBoardDiscardsStaleFetch(t *testing.T) {
	resolver := &stubResolver{teacherID: "teacher-1"}
	started := make(chan struct{})
	release := make(chan struct{})
	entries := &stubEntries{
		list: func(call int, teacherID string) (dto.TeachingLearningGroupsResponse, error) {
			switch call {
			case 2:
				close(started)
				<-release
				return groupsWith(teacherID,
					dto.TeachingLearningResponse{ID: "old", Category: models.CategoryStudentFeedback, Title: "Old"},
				), nil
			case 3:
				return groupsWith(teacherID,
					dto.TeachingLearningResponse{ID: "new", Category: models.CategoryStudentFeedback, Title: "New"},
					dto.TeachingLearningResponse{ID: "newer", Category: models.CategoryStudentFeedback, Title: "Newer"},
				), nil
			default:
				return groupsWith(teacherID), nil
			}
		},
	}
	board := newBoard(resolver, entries)
	require.NoError(t, board.Start(context.Background(), teacherActor))

	done := make(chan error, 1)
	go func() {
		done <- board.Refresh(context.Background())
	}()
	<-started

	require.NoError(t, board.Refresh(context.Background()))
	close(release)
	require.NoError(t, <-done)

	group := board.Groups().Group(models.CategoryStudentFeedback)
	require.Len(t, group.Items, 2)
	require.Equal(t, "new", group.Items[0].ID)
}

func TestBoardSaveClosesFormAndRefreshes(t *testing.T) {
	resolver := &stubResolver{teacherID: "teacher-1"}
	entries := &stubEntries{}
	board := newBoard(resolver, entries)
	require.NoError(t, board.Start(context.Background(), teacherActor))
	before := entries.calls()

	ctx := context.Background()
	require.NoError(t, board.Apply(ctx, dto.BoardCommand{Type: dto.BoardCommandToggleForm, Category: models.CategoryPedagogicalInnovations}))
	require.NoError(t, board.Apply(ctx, dto.BoardCommand{
		Type:     dto.BoardCommandSave,
		Category: models.CategoryPedagogicalInnovations,
		Form: &dto.BoardForm{
			Title:       "Flipped Classroom",
			ClassName:   "10",
			Section:     "A",
			Description: "Students watch lectures at home",
			URL:         "https://example.com/flipped",
		},
	}))

	require.Len(t, entries.saved, 1)
	require.Equal(t, models.CategoryPedagogicalInnovations, entries.saved[0].Category)
	require.Empty(t, entries.saved[0].ID)
	require.Equal(t, before+1, entries.calls())

	view := board.Snapshot().Panels[1]
	require.False(t, view.FormOpen)
	require.Nil(t, view.Form)
}

func TestBoardSaveFailureKeepsFormOpen(t *testing.T) {
	resolver := &stubResolver{teacherID: "teacher-1"}
	entries := &stubEntries{saveErr: errors.New("write failed")}
	board := newBoard(resolver, entries)
	require.NoError(t, board.Start(context.Background(), teacherActor))

	err := board.Apply(context.Background(), dto.BoardCommand{
		Type:     dto.BoardCommandSave,
		Category: models.CategoryAcademicResults,
		Form:     &dto.BoardForm{Title: "Midterm results"},
	})
	require.Error(t, err)

	snapshot := board.Snapshot()
	view := snapshot.Panels[3]
	require.True(t, view.FormOpen)
	require.Equal(t, "Midterm results", view.Form.Title)
	require.Equal(t, "write failed", snapshot.Error)
}

func TestBoardEditPrefillsFromLoadedEntry(t *testing.T) {
	resolver := &stubResolver{teacherID: "teacher-1"}
	entries := &stubEntries{
		list: func(call int, teacherID string) (dto.TeachingLearningGroupsResponse, error) {
			return groupsWith(teacherID,
				dto.TeachingLearningResponse{ID: "e1", Category: models.CategoryCourseDesign, Title: "Syllabus", ClassName: "9"},
			), nil
		},
	}
	board := newBoard(resolver, entries)
	require.NoError(t, board.Start(context.Background(), teacherActor))

	ctx := context.Background()
	require.ErrorIs(t, board.Apply(ctx, dto.BoardCommand{Type: dto.BoardCommandEdit, Category: models.CategoryCourseDesign, EntryID: "missing"}), panel.ErrEntryNotLoaded)
	require.NoError(t, board.Apply(ctx, dto.BoardCommand{Type: dto.BoardCommandEdit, Category: models.CategoryCourseDesign, EntryID: "e1"}))

	view := board.Snapshot().Panels[0]
	require.True(t, view.Editing)
	require.Equal(t, "Syllabus", view.Form.Title)

	require.NoError(t, board.Apply(ctx, dto.BoardCommand{Type: dto.BoardCommandCancel, Category: models.CategoryCourseDesign}))
	require.False(t, board.Snapshot().Panels[0].FormOpen)
}

func TestBoardDeleteRefreshes(t *testing.T) {
	resolver := &stubResolver{teacherID: "teacher-1"}
	entries := &stubEntries{}
	board := newBoard(resolver, entries)
	require.NoError(t, board.Start(context.Background(), teacherActor))
	before := entries.calls()

	require.NoError(t, board.Apply(context.Background(), dto.BoardCommand{Type: dto.BoardCommandDelete, EntryID: "e1"}))
	require.Equal(t, []string{"e1"}, entries.deleted)
	require.Equal(t, before+1, entries.calls())
}

func TestBoardRejectsUnknownPanel(t *testing.T) {
	board := newBoard(&stubResolver{teacherID: "teacher-1"}, &stubEntries{})

	err := board.Apply(context.Background(), dto.BoardCommand{Type: dto.BoardCommandToggleForm, Category: "Research"})
	require.ErrorIs(t, err, panel.ErrUnknownPanel)
}
