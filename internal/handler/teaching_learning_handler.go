package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/models"
	"github.com/noah-isme/gema-teaching-api/internal/service"
	"github.com/noah-isme/gema-teaching-api/internal/utils"
)

// TeachingLearningHandler exposes the teacher's entries over HTTP.
type TeachingLearningHandler struct {
	service  service.TeachingLearningService
	resolver service.TeacherResolver
	limiter  fiber.Handler
	logger   zerolog.Logger
}

// NewTeachingLearningHandler constructs the handler. A nil limiter leaves mutations unthrottled.
func NewTeachingLearningHandler(svc service.TeachingLearningService, resolver service.TeacherResolver, limiter fiber.Handler, logger zerolog.Logger) *TeachingLearningHandler {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &TeachingLearningHandler{
		service:  svc,
		resolver: resolver,
		limiter:  limiter,
		logger:   logger.With().Str("component", "teaching_learning_handler").Logger(),
	}
}

// Register attaches entry routes to the router group.
func (h *TeachingLearningHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/categories", h.categories)
	router.Get("/:id", h.get)
	router.Post("", h.limiter, h.save)
	router.Put("/:id", h.limiter, h.update)
	router.Delete("/:id", h.limiter, h.delete)
}

func (h *TeachingLearningHandler) list(c *fiber.Ctx) error {
	ctx := requestContext(c)
	teacherID, err := h.resolver.Resolve(ctx, userIDStringFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrTeacherNotFound) {
			return utils.SendSuccess(c, "teacher profile not found", dto.EmptyTeachingLearningGroups(""))
		}
		return h.fail(c, err, "failed to resolve teacher")
	}

	groups, err := h.service.ListGrouped(ctx, teacherID)
	if err != nil {
		return h.fail(c, err, "failed to load entries")
	}

	return utils.SendSuccess(c, "teaching and learning entries", groups)
}

func (h *TeachingLearningHandler) categories(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "teaching and learning categories", h.service.Categories())
}

func (h *TeachingLearningHandler) get(c *fiber.Ctx) error {
	ctx := requestContext(c)
	teacherID, err := h.resolver.Resolve(ctx, userIDStringFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to resolve teacher")
	}

	entry, err := h.service.Get(ctx, teacherID, c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to load entry")
	}

	return utils.SendSuccess(c, "teaching and learning entry", entry)
}

func (h *TeachingLearningHandler) save(c *fiber.Ctx) error {
	var payload dto.TeachingLearningRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	return h.persist(c, payload)
}

func (h *TeachingLearningHandler) update(c *fiber.Ctx) error {
	var payload dto.TeachingLearningRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.ID = c.Params("id")
	return h.persist(c, payload)
}

func (h *TeachingLearningHandler) persist(c *fiber.Ctx, payload dto.TeachingLearningRequest) error {
	ctx := requestContext(c)
	teacherID, err := h.resolver.Resolve(ctx, userIDStringFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to resolve teacher")
	}

	result, err := h.service.Save(ctx, activityActorFromContext(c), teacherID, payload)
	if err != nil {
		return h.fail(c, err, "failed to save entry")
	}

	if result.Action == models.ActivityActionAdd {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "entry created", result)
	}
	return utils.SendSuccess(c, "entry updated", result)
}

func (h *TeachingLearningHandler) delete(c *fiber.Ctx) error {
	ctx := requestContext(c)
	teacherID, err := h.resolver.Resolve(ctx, userIDStringFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to resolve teacher")
	}

	result, err := h.service.Delete(ctx, activityActorFromContext(c), teacherID, c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to delete entry")
	}

	return utils.SendSuccess(c, "entry deleted", result)
}

func (h *TeachingLearningHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrMissingSession):
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrTeacherNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "teacher profile not found")
	case errors.Is(err, service.ErrTeachingLearningNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "entry not found")
	case errors.Is(err, service.ErrUnknownCategory):
		return utils.SendError(c, fiber.StatusBadRequest, "unknown category")
	case service.IsValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", service.ValidationDetails(err))
	}

	requestLogger(h.logger, c).Error().Err(err).Msg(message)
	return utils.SendError(c, fiber.StatusInternalServerError, message)
}
