package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-teaching-api/internal/repository"
)

var (
	// ErrMissingSession indicates there is no authenticated session user.
	ErrMissingSession = errors.New("session user missing")
	// ErrTeacherNotFound indicates the session user has no teacher document.
	ErrTeacherNotFound = errors.New("teacher profile not found")
)

// TeacherResolver maps a session user identifier to a teacher identifier.
type TeacherResolver interface {
	Resolve(ctx context.Context, userID string) (string, error)
}

type teacherResolver struct {
	repo   repository.TeacherRepository
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewTeacherResolver constructs the identity resolver. A nil cache disables caching.
func NewTeacherResolver(repo repository.TeacherRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) TeacherResolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &teacherResolver{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "teacher_resolver").Logger(),
	}
}

func (r *teacherResolver) Resolve(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrMissingSession
	}

	cacheKey := teacherCacheKey(userID)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil && cached != "":
			return cached, nil
		case err != nil && !errors.Is(err, redis.Nil):
			r.logger.Warn().Err(err).Msg("failed to read teacher cache")
		}
	}

	teacher, err := r.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			r.logger.Warn().Str("user_id", userID).Msg("no teacher document for session user")
			return "", ErrTeacherNotFound
		}
		return "", fmt.Errorf("lookup teacher: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, teacher.ID, r.ttl).Err(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to store teacher cache")
		}
	}

	return teacher.ID, nil
}

func teacherCacheKey(userID string) string {
	return "teaching:teacher:" + userID
}
