package handler

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/middleware"
	"github.com/noah-isme/gema-teaching-api/internal/observability"
	"github.com/noah-isme/gema-teaching-api/internal/panel"
	"github.com/noah-isme/gema-teaching-api/internal/service"
)

const (
	boardSendBufferSize = 8
	boardPingInterval   = 30 * time.Second
)

// TeachingLearningSessionHandler serves the live panel board over a websocket.
type TeachingLearningSessionHandler struct {
	resolver  service.TeacherResolver
	entries   service.TeachingLearningService
	notifier  service.ChangeNotifier
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTeachingLearningSessionHandler constructs the websocket handler. The notifier is optional.
func NewTeachingLearningSessionHandler(
	resolver service.TeacherResolver,
	entries service.TeachingLearningService,
	notifier service.ChangeNotifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) *TeachingLearningSessionHandler {
	return &TeachingLearningSessionHandler{
		resolver:  resolver,
		entries:   entries,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "teaching_learning_session").Logger(),
	}
}

// Register binds the websocket upgrade route. It must be registered before parameterised routes.
func (h *TeachingLearningSessionHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *TeachingLearningSessionHandler) handleConnection(conn *websocket.Conn) {
	actor := service.ActivityActor{ID: userIDFromLocals(conn.Locals("user_id"))}
	if role, ok := conn.Locals("user_role").(string); ok {
		actor.Role = role
	}
	if actor.ID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	logger := h.logger.With().Str("user_id", actor.ID).Logger()
	if correlation := middleware.CorrelationIDFromContext(ctx); correlation != "" {
		logger = logger.With().Str("correlation_id", correlation).Logger()
	}

	observability.BoardSessionsActive().Inc()
	defer observability.BoardSessionsActive().Dec()

	board := panel.NewBoard(h.resolver, h.entries, logger)
	if err := board.Start(ctx, actor); err != nil {
		logger.Warn().Err(err).Msg("board started without entries")
	}

	var events <-chan service.ChangeEvent
	if teacherID := board.TeacherID(); teacherID != "" && h.notifier != nil {
		subscription, unsubscribe := h.notifier.Subscribe(teacherID)
		defer unsubscribe()
		events = subscription
	}

	session := &boardSession{
		conn:      conn,
		board:     board,
		validator: h.validator,
		send:      make(chan dto.BoardSnapshot, boardSendBufferSize),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger,
	}
	session.push(board.Snapshot())

	logger.Info().Str("teacher_id", board.TeacherID()).Msg("board websocket connected")
	go session.writer(ctx, events)
	session.reader(ctx)

	// the connection goes back to the pool on return; the writer must be gone by then
	cancel()
	<-session.done
	logger.Info().Msg("board websocket disconnected")
}

type boardSession struct {
	conn      *websocket.Conn
	board     *panel.Board
	validator *validator.Validate
	send      chan dto.BoardSnapshot
	closed    chan struct{}
	done      chan struct{}
	once      sync.Once
	logger    zerolog.Logger
}

func (s *boardSession) reader(ctx context.Context) {
	defer s.close()

	for {
		var cmd dto.BoardCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			s.logger.Debug().Err(err).Msg("board read loop ended")
			return
		}

		if s.validator != nil {
			if err := s.validator.Struct(cmd); err != nil {
				snapshot := s.board.Snapshot()
				snapshot.Error = "invalid command"
				s.push(snapshot)
				continue
			}
		}

		if err := s.board.Apply(ctx, cmd); err != nil {
			s.logger.Warn().Err(err).Str("command", cmd.Type).Str("category", cmd.Category).Msg("board command failed")
		}

		if s.isClosed() {
			return
		}
		s.push(s.board.Snapshot())
	}
}

func (s *boardSession) writer(ctx context.Context, events <-chan service.ChangeEvent) {
	defer close(s.done)
	defer s.close()

	ticker := time.NewTicker(boardPingInterval)
	defer ticker.Stop()

	for {
		select {
		case snapshot := <-s.send:
			if err := s.conn.WriteJSON(snapshot); err != nil {
				s.logger.Debug().Err(err).Msg("board write loop terminated")
				return
			}
		case event := <-events:
			if err := s.board.Refresh(ctx); err != nil {
				s.logger.Warn().Err(err).Str("entry_id", event.EntryID).Msg("failed to refresh board after change")
			}
			if s.isClosed() || ctx.Err() != nil {
				return
			}
			if err := s.conn.WriteJSON(s.board.Snapshot()); err != nil {
				s.logger.Debug().Err(err).Msg("board write loop terminated")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				s.logger.Debug().Err(err).Msg("board ping failed")
				return
			}
		case <-s.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *boardSession) push(snapshot dto.BoardSnapshot) {
	select {
	case s.send <- snapshot:
	default:
		s.logger.Debug().Msg("dropping board snapshot for slow client")
	}
}

func (s *boardSession) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *boardSession) close() {
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}
