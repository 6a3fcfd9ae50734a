package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/repository"
)

// ErrUnsupportedActionType indicates an action type other than Add, Edit or Delete.
var ErrUnsupportedActionType = errors.New("unsupported action type")

// ActivityActor represents the authenticated session user performing an action.
type ActivityActor struct {
	ID   string
	Role string
}

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	ActorID     string
	ActorRole   string
	ActionType  string
	Entity      string
	EntityID    string
	Description string
	Metadata    map[string]interface{}
}

// ActivityRecorder defines behaviour for recording activity logs.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService exposes methods to query and persist activity logs.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
		now:    time.Now,
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	action := normalizeActionType(entry.ActionType)
	if action == "" {
		return dto.ActivityResponse{}, fmt.Errorf("%w %q", ErrUnsupportedActionType, entry.ActionType)
	}
	if strings.TrimSpace(entry.Entity) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("entity is required")
	}
	if strings.TrimSpace(entry.ActorID) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("actor is required")
	}

	model := models.ActivityLog{
		ActionType:  action,
		Entity:      strings.TrimSpace(entry.Entity),
		EntityID:    strings.TrimSpace(entry.EntityID),
		Description: strings.TrimSpace(entry.Description),
		UserID:      strings.TrimSpace(entry.ActorID),
		UserRole:    normalizeRole(entry.ActorRole),
		Metadata:    sanitizeMetadata(entry.Metadata),
		Timestamp:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action_type", action).Str("entity_id", model.EntityID).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
		UserID:   strings.TrimSpace(req.UserID),
		Entity:   strings.TrimSpace(req.Entity),
	}
	if req.ActionType != "" {
		filter.ActionType = normalizeActionType(req.ActionType)
		if filter.ActionType == "" {
			return dto.ActivityListResponse{}, fmt.Errorf("%w %q", ErrUnsupportedActionType, req.ActionType)
		}
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalItems: total,
		TotalPages: calculateTotalPages(total, filter.PageSize),
	}

	return dto.ActivityListResponse{Items: responses, Pagination: pagination}, nil
}

// IsUnsupportedActionType reports whether err comes from an unknown action type filter or entry.
func IsUnsupportedActionType(err error) bool {
	return errors.Is(err, ErrUnsupportedActionType)
}

func normalizeActionType(action string) string {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "add":
		return models.ActivityActionAdd
	case "edit":
		return models.ActivityActionEdit
	case "delete":
		return models.ActivityActionDelete
	default:
		return ""
	}
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}
