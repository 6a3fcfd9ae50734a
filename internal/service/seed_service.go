package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
	// ErrSeedInvalidPayload indicates a seed item is missing required fields.
	ErrSeedInvalidPayload = errors.New("invalid seed payload")
)

// SeedService provisions teacher documents so session users can be resolved.
type SeedService interface {
	SeedTeachers(ctx context.Context, token string, items []models.Teacher) (int64, error)
}

type seedService struct {
	teachers repository.TeacherRepository
	enabled  bool
	token    string
	logger   zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(teachers repository.TeacherRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		teachers: teachers,
		enabled:  enabled,
		token:    token,
		logger:   logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedTeachers(ctx context.Context, token string, items []models.Teacher) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}

	normalized, err := normalizeTeachers(items)
	if err != nil {
		return 0, err
	}

	affected, err := s.teachers.UpsertBatch(ctx, normalized)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("affected", affected).Msg("teachers seeded")
	return affected, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

func normalizeTeachers(items []models.Teacher) ([]models.Teacher, error) {
	seen := make(map[string]struct{}, len(items))
	result := make([]models.Teacher, 0, len(items))
	for i, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			return nil, fmt.Errorf("%w: teacher %d has no id", ErrSeedInvalidPayload, i)
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		item.Name = strings.TrimSpace(item.Name)
		item.Email = strings.ToLower(strings.TrimSpace(item.Email))
		result = append(result, item)
	}
	return result, nil
}
