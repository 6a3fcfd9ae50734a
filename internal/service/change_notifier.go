package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	changeSubscriberBuffer = 8
	changeRedisRetryMin    = 100 * time.Millisecond
	changeRedisRetryMax    = 5 * time.Second
)

// ChangeEvent announces that a teacher's entries changed and should be re-fetched.
type ChangeEvent struct {
	Source    string    `json:"source"`
	TeacherID string    `json:"teacher_id"`
	Action    string    `json:"action"`
	EntryID   string    `json:"entry_id"`
	SentAt    time.Time `json:"sent_at"`
}

// ChangeNotifier fans change events out to live board sessions on every node.
type ChangeNotifier interface {
	Notify(ctx context.Context, event ChangeEvent)
	Subscribe(teacherID string) (<-chan ChangeEvent, func())
	Start(ctx context.Context)
}

type changeNotifier struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string

	mu          sync.RWMutex
	subscribers map[string]map[chan ChangeEvent]struct{}
}

// NewChangeNotifier constructs a notifier. Redis and NATS are optional; without them delivery is local only.
func NewChangeNotifier(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ChangeNotifier {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":teaching-learning"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".teaching-learning"
	}

	return &changeNotifier{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "change_notifier").Logger(),
		nodeID:       uuid.NewString(),
		subscribers:  make(map[string]map[chan ChangeEvent]struct{}),
	}
}

func (n *changeNotifier) Start(ctx context.Context) {
	if n.redis != nil && n.redisChannel != "" {
		go n.consumeRedis(ctx)
	}
	if n.nats != nil && n.natsSubject != "" {
		go n.consumeNATS(ctx)
	}
}

func (n *changeNotifier) Notify(ctx context.Context, event ChangeEvent) {
	event.Source = n.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	n.broadcast(event)

	if err := n.publish(ctx, event); err != nil {
		n.logger.Warn().Err(err).Str("teacher_id", event.TeacherID).Msg("failed to publish change event")
	}
}

func (n *changeNotifier) Subscribe(teacherID string) (<-chan ChangeEvent, func()) {
	channel := make(chan ChangeEvent, changeSubscriberBuffer)

	n.mu.Lock()
	if _, ok := n.subscribers[teacherID]; !ok {
		n.subscribers[teacherID] = make(map[chan ChangeEvent]struct{})
	}
	n.subscribers[teacherID][channel] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if subs, ok := n.subscribers[teacherID]; ok {
				delete(subs, channel)
				if len(subs) == 0 {
					delete(n.subscribers, teacherID)
				}
			}
		})
	}

	return channel, cleanup
}

func (n *changeNotifier) broadcast(event ChangeEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for channel := range n.subscribers[event.TeacherID] {
		select {
		case channel <- event:
		default:
			n.logger.Debug().Str("teacher_id", event.TeacherID).Msg("dropping change event for slow subscriber")
		}
	}
}

func (n *changeNotifier) publish(ctx context.Context, event ChangeEvent) error {
	if (n.redis == nil || n.redisChannel == "") && (n.nats == nil || n.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if n.redis != nil && n.redisChannel != "" {
		if err := n.redis.Publish(ctx, n.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if n.nats != nil && n.natsSubject != "" {
		if err := n.nats.Publish(n.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (n *changeNotifier) consumeRedis(ctx context.Context) {
	pubsub := n.redis.Subscribe(ctx, n.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	backoff := changeRedisRetryMin
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}
			// the next receive reconnects and resubscribes
			n.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("change redis subscription interrupted")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, changeRedisRetryMax)
			continue
		}
		backoff = changeRedisRetryMin
		n.handleEvent([]byte(msg.Payload))
	}
}

func (n *changeNotifier) consumeNATS(ctx context.Context) {
	// Plain subscribe: every node must see every event to reach its own sessions.
	sub, err := n.nats.Subscribe(n.natsSubject, func(msg *nats.Msg) {
		n.handleEvent(msg.Data)
	})
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to subscribe to nats change subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			n.logger.Warn().Err(err).Msg("failed to drain change nats subscription")
		}
	}()
}

func (n *changeNotifier) handleEvent(data []byte) {
	var event ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		n.logger.Warn().Err(err).Msg("invalid change event")
		return
	}

	if event.Source == n.nodeID || event.TeacherID == "" {
		return
	}

	n.broadcast(event)
}
