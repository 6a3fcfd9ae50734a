package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/observability"
	"github.com/noah-isme/gema-teaching-api/internal/repository"
)

var (
	// ErrTeachingLearningNotFound indicates the entry does not exist for the teacher.
	ErrTeachingLearningNotFound = errors.New("teaching and learning entry not found")
	// ErrUnknownCategory indicates the category is not one of the fixed labels.
	ErrUnknownCategory = errors.New("unknown teaching and learning category")
)

// TeachingLearningService groups, creates, edits and deletes a teacher's entries.
type TeachingLearningService interface {
	Categories() []string
	ListGrouped(ctx context.Context, teacherID string) (dto.TeachingLearningGroupsResponse, error)
	Get(ctx context.Context, teacherID, id string) (dto.TeachingLearningResponse, error)
	Save(ctx context.Context, actor ActivityActor, teacherID string, payload dto.TeachingLearningRequest) (dto.TeachingLearningMutationResponse, error)
	Delete(ctx context.Context, actor ActivityActor, teacherID, id string) (dto.TeachingLearningMutationResponse, error)
}

// TeachingLearningOptions tunes mutation behaviour.
type TeachingLearningOptions struct {
	// EnforceValidation rejects forms with blank required fields. When false blank fields are persisted.
	EnforceValidation bool
}

type teachingLearningService struct {
	repo      repository.TeachingLearningRepository
	activity  ActivityRecorder
	notifier  ChangeNotifier
	validator *validator.Validate
	options   TeachingLearningOptions
	logger    zerolog.Logger
	tracer    trace.Tracer
	plain     *bluemonday.Policy
	now       func() time.Time
}

// NewTeachingLearningService constructs the entry service.
func NewTeachingLearningService(
	repo repository.TeachingLearningRepository,
	activity ActivityRecorder,
	notifier ChangeNotifier,
	validate *validator.Validate,
	options TeachingLearningOptions,
	logger zerolog.Logger,
) TeachingLearningService {
	svcLogger := logger.With().Str("component", "teaching_learning_service").Logger()
	if err := RegisterValidations(validate); err != nil {
		svcLogger.Error().Err(err).Msg("failed to register category validation")
	}

	return &teachingLearningService{
		repo:      repo,
		activity:  activity,
		notifier:  notifier,
		validator: validate,
		options:   options,
		logger:    svcLogger,
		tracer:    otel.Tracer("github.com/noah-isme/gema-teaching-api/internal/service/teaching_learning"),
		plain:     bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func (s *teachingLearningService) Categories() []string {
	return models.TeachingLearningCategories()
}

func (s *teachingLearningService) ListGrouped(ctx context.Context, teacherID string) (dto.TeachingLearningGroupsResponse, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return dto.EmptyTeachingLearningGroups(""), ErrTeacherNotFound
	}

	start := time.Now()
	defer func() {
		observability.TeachingLearningFetchLatency().Observe(time.Since(start).Seconds())
	}()

	spanCtx, span := s.tracer.Start(ctx, "teaching_learning.list_grouped",
		trace.WithAttributes(attribute.String("teaching_learning.teacher_id", teacherID)))
	defer span.End()

	records, err := s.repo.ListByTeacher(spanCtx, teacherID)
	if err != nil {
		span.RecordError(err)
		return dto.TeachingLearningGroupsResponse{}, err
	}

	return s.group(teacherID, records), nil
}

// group partitions records into the fixed buckets. Records with an unknown category are dropped.
func (s *teachingLearningService) group(teacherID string, records []models.TeachingLearning) dto.TeachingLearningGroupsResponse {
	response := dto.EmptyTeachingLearningGroups(teacherID)
	response.Resolved = true

	index := make(map[string]int, len(response.Groups))
	for i, group := range response.Groups {
		index[group.Category] = i
	}

	for _, record := range records {
		position, ok := index[record.Category]
		if !ok || record.TeacherID != teacherID {
			observability.TeachingLearningDroppedEntries().Inc()
			s.logger.Debug().Str("entry_id", record.ID).Str("category", record.Category).Msg("skipping entry outside known buckets")
			continue
		}
		response.Groups[position].Items = append(response.Groups[position].Items, dto.NewTeachingLearningResponse(record))
	}

	for i := range response.Groups {
		items := response.Groups[i].Items
		sort.SliceStable(items, func(a, b int) bool {
			return items[a].CreatedAt.After(items[b].CreatedAt)
		})
		response.Groups[i].Count = len(items)
		response.Total += len(items)
	}

	return response
}

func (s *teachingLearningService) Get(ctx context.Context, teacherID, id string) (dto.TeachingLearningResponse, error) {
	entry, err := s.owned(ctx, teacherID, id)
	if err != nil {
		return dto.TeachingLearningResponse{}, err
	}
	return dto.NewTeachingLearningResponse(entry), nil
}

func (s *teachingLearningService) Save(ctx context.Context, actor ActivityActor, teacherID string, payload dto.TeachingLearningRequest) (dto.TeachingLearningMutationResponse, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return dto.TeachingLearningMutationResponse{}, ErrTeacherNotFound
	}

	payload = s.sanitize(normalizeTeachingLearningRequest(payload))
	if !models.IsTeachingLearningCategory(payload.Category) {
		return dto.TeachingLearningMutationResponse{}, ErrUnknownCategory
	}
	if s.options.EnforceValidation {
		if err := s.validator.Struct(payload); err != nil {
			return dto.TeachingLearningMutationResponse{}, err
		}
	}

	action := models.ActivityActionAdd
	if payload.ID != "" {
		action = models.ActivityActionEdit
	}

	spanCtx, span := s.tracer.Start(ctx, "teaching_learning.save", trace.WithAttributes(
		attribute.String("teaching_learning.teacher_id", teacherID),
		attribute.String("teaching_learning.action", action),
		attribute.String("teaching_learning.category", payload.Category),
	))
	defer span.End()

	var (
		entry models.TeachingLearning
		err   error
	)
	if action == models.ActivityActionAdd {
		entry, err = s.create(spanCtx, teacherID, payload)
	} else {
		entry, err = s.update(spanCtx, teacherID, payload)
	}
	if err != nil {
		span.RecordError(err)
		observability.TeachingLearningMutations().WithLabelValues(action, "error").Inc()
		return dto.TeachingLearningMutationResponse{}, err
	}

	return s.afterMutation(spanCtx, actor, action, entry), nil
}

func (s *teachingLearningService) create(ctx context.Context, teacherID string, payload dto.TeachingLearningRequest) (models.TeachingLearning, error) {
	entry := models.TeachingLearning{
		Category:    payload.Category,
		Title:       payload.Title,
		ClassName:   payload.ClassName,
		Section:     payload.Section,
		Description: payload.Description,
		URL:         payload.URL,
		TeacherID:   teacherID,
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		return models.TeachingLearning{}, err
	}
	return entry, nil
}

func (s *teachingLearningService) update(ctx context.Context, teacherID string, payload dto.TeachingLearningRequest) (models.TeachingLearning, error) {
	entry, err := s.owned(ctx, teacherID, payload.ID)
	if err != nil {
		return models.TeachingLearning{}, err
	}

	entry.Category = payload.Category
	entry.Title = payload.Title
	entry.ClassName = payload.ClassName
	entry.Section = payload.Section
	entry.Description = payload.Description
	entry.URL = payload.URL
	entry.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, &entry); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return models.TeachingLearning{}, ErrTeachingLearningNotFound
		}
		return models.TeachingLearning{}, err
	}
	return entry, nil
}

func (s *teachingLearningService) Delete(ctx context.Context, actor ActivityActor, teacherID, id string) (dto.TeachingLearningMutationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "teaching_learning.delete", trace.WithAttributes(
		attribute.String("teaching_learning.teacher_id", teacherID),
		attribute.String("teaching_learning.entry_id", id),
	))
	defer span.End()

	entry, err := s.owned(spanCtx, teacherID, id)
	if err != nil {
		span.RecordError(err)
		return dto.TeachingLearningMutationResponse{}, err
	}

	if err := s.repo.Delete(spanCtx, entry.TeacherID, entry.ID); err != nil {
		span.RecordError(err)
		observability.TeachingLearningMutations().WithLabelValues(models.ActivityActionDelete, "error").Inc()
		if errors.Is(err, repository.ErrRecordNotFound) {
			return dto.TeachingLearningMutationResponse{}, ErrTeachingLearningNotFound
		}
		return dto.TeachingLearningMutationResponse{}, err
	}

	return s.afterMutation(spanCtx, actor, models.ActivityActionDelete, entry), nil
}

// owned loads an entry and hides entries of other teachers behind ErrTeachingLearningNotFound.
func (s *teachingLearningService) owned(ctx context.Context, teacherID, id string) (models.TeachingLearning, error) {
	teacherID = strings.TrimSpace(teacherID)
	id = strings.TrimSpace(id)
	if teacherID == "" {
		return models.TeachingLearning{}, ErrTeacherNotFound
	}
	if id == "" {
		return models.TeachingLearning{}, ErrTeachingLearningNotFound
	}

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return models.TeachingLearning{}, ErrTeachingLearningNotFound
		}
		return models.TeachingLearning{}, err
	}
	if entry.TeacherID != teacherID {
		return models.TeachingLearning{}, ErrTeachingLearningNotFound
	}
	return entry, nil
}

// afterMutation appends the audit record and announces the change. The entry mutation has
// already committed; an audit failure is reported, never rolled back.
func (s *teachingLearningService) afterMutation(ctx context.Context, actor ActivityActor, action string, entry models.TeachingLearning) dto.TeachingLearningMutationResponse {
	observability.TeachingLearningMutations().WithLabelValues(action, "ok").Inc()

	audited := false
	if s.activity != nil {
		_, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:     actor.ID,
			ActorRole:   actor.Role,
			ActionType:  action,
			Entity:      models.TeachingLearningEntity,
			EntityID:    entry.ID,
			Description: describeMutation(action, entry),
			Metadata: map[string]interface{}{
				"category":   entry.Category,
				"class_name": entry.ClassName,
				"section":    entry.Section,
				"teacher_id": entry.TeacherID,
			},
		})
		if err != nil {
			observability.TeachingLearningAuditFailures().WithLabelValues(action).Inc()
			s.logger.Warn().Err(err).Str("action", action).Str("entry_id", entry.ID).Msg("entry changed but activity log write failed")
		} else {
			audited = true
		}
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, ChangeEvent{TeacherID: entry.TeacherID, Action: action, EntryID: entry.ID})
	}

	return dto.TeachingLearningMutationResponse{
		Action:        action,
		Entry:         dto.NewTeachingLearningResponse(entry),
		AuditRecorded: audited,
	}
}

func describeMutation(action string, entry models.TeachingLearning) string {
	switch action {
	case models.ActivityActionAdd:
		return fmt.Sprintf("Added %q to %s", entry.Title, entry.Category)
	case models.ActivityActionEdit:
		return fmt.Sprintf("Updated %q in %s", entry.Title, entry.Category)
	default:
		return fmt.Sprintf("Deleted %q from %s", entry.Title, entry.Category)
	}
}

func normalizeTeachingLearningRequest(payload dto.TeachingLearningRequest) dto.TeachingLearningRequest {
	return dto.TeachingLearningRequest{
		ID:          strings.TrimSpace(payload.ID),
		Category:    strings.TrimSpace(payload.Category),
		Title:       strings.TrimSpace(payload.Title),
		ClassName:   strings.TrimSpace(payload.ClassName),
		Section:     strings.TrimSpace(payload.Section),
		Description: strings.TrimSpace(payload.Description),
		URL:         strings.TrimSpace(payload.URL),
	}
}

func (s *teachingLearningService) sanitize(payload dto.TeachingLearningRequest) dto.TeachingLearningRequest {
	payload.Title = s.plainText(payload.Title)
	payload.ClassName = s.plainText(payload.ClassName)
	payload.Section = s.plainText(payload.Section)
	payload.Description = s.plainText(payload.Description)
	return payload
}

// maxStripPasses bounds re-stripping when decoded entities form new tags.
const maxStripPasses = 4

// plainText strips HTML elements and returns unescaped text. Text without
// element tags, such as "Q&A" or "<Tab>", is kept as submitted.
func (s *teachingLearningService) plainText(value string) string {
	for i := 0; i < maxStripPasses && containsMarkup(value); i++ {
		value = html.UnescapeString(s.plain.Sanitize(value))
	}
	if containsMarkup(value) {
		value = s.plain.Sanitize(value)
	}
	return strings.TrimSpace(value)
}

// containsMarkup reports whether value carries an HTML comment or a tag
// naming a known HTML element.
func containsMarkup(value string) bool {
	if !strings.ContainsRune(value, '<') {
		return false
	}
	tokenizer := html.NewTokenizer(strings.NewReader(value))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return false
		case html.CommentToken, html.DoctypeToken:
			return true
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if _, ok := htmlElements[string(name)]; ok {
				return true
			}
		}
	}
}

var htmlElements = func() map[string]struct{} {
	names := strings.Fields(`a abbr address applet area article aside audio b base bdi bdo blockquote body br
		button canvas caption center cite code col colgroup data datalist dd del details dfn dialog div dl dt
		em embed fieldset figcaption figure font footer form frame frameset h1 h2 h3 h4 h5 h6 head header hr
		html i iframe img input ins kbd label legend li link main map mark marquee math menu meta meter nav
		noscript object ol optgroup option output p param picture pre progress q rp rt ruby s samp script
		section select slot small source span strike strong style sub summary sup svg table tbody td
		template textarea tfoot th thead time title tr track u ul var video wbr`)
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}()
