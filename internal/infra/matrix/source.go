// Package matrix receives utterances from Matrix rooms and answers in the
// room the message came from.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"smart-home-bot/internal/application"
)

type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms are joined on start. When non-empty, messages from other rooms are ignored.
	Rooms []string
}

type sender interface {
	SendText(ctx context.Context, roomID id.RoomID, text string) (*mautrix.RespSendEvent, error)
}

type Source struct {
	cfg     Config
	client  *mautrix.Client
	sender  sender
	queue   chan application.Utterance
	logger  *slog.Logger
	started time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	closed chan struct{}
	once   sync.Once
}

func NewSource(cfg Config, logger *slog.Logger) (*Source, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	s := newSource(cfg, client, logger)
	s.client = client
	return s, nil
}

func newSource(cfg Config, sender sender, logger *slog.Logger) *Source {
	return &Source{
		cfg:     cfg,
		sender:  sender,
		queue:   make(chan application.Utterance, 32),
		logger:  logger.With("source", "matrix"),
		started: time.Now(),
		closed:  make(chan struct{}),
	}
}

func (s *Source) Name() string {
	return "matrix"
}

func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	s.logger.Warn("Matrix E2EE is not enabled; messages are transmitted in plaintext")

	syncer, ok := s.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("matrix client has no default syncer")
	}
	syncer.OnEventType(event.EventMessage, s.handleMessage)

	for _, room := range s.cfg.Rooms {
		if _, err := s.client.JoinRoomByID(ctx, id.RoomID(room)); err != nil {
			if !errors.Is(err, mautrix.MForbidden) {
				return fmt.Errorf("joining room %s: %w", room, err)
			}
			s.logger.Warn("already a member or access denied, continuing", "room", room)
		}
	}

	syncCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = time.Now()
	go s.syncLoop(syncCtx)
	return nil
}

func (s *Source) syncLoop(ctx context.Context) {
	const (
		backoffMin = 2 * time.Second
		backoffMax = 5 * time.Minute
	)
	backoff := backoffMin
	for {
		err := s.client.SyncWithContext(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		s.logger.Error("matrix sync stopped; reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.once.Do(func() { close(s.closed) })
	if s.cancel != nil {
		s.cancel()
		s.client.StopSync()
		s.cancel = nil
	}
	return nil
}

func (s *Source) Next(ctx context.Context) (application.Utterance, error) {
	select {
	case <-ctx.Done():
		return application.Utterance{}, ctx.Err()
	case <-s.closed:
		return application.Utterance{}, application.ErrSourceClosed
	case u := <-s.queue:
		return u, nil
	}
}

func (s *Source) handleMessage(_ context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(s.cfg.UserID) {
		return
	}
	// Initial sync replays room history.
	if time.UnixMilli(evt.Timestamp).Before(s.started) {
		return
	}
	if !s.allowedRoom(evt.RoomID) {
		return
	}

	msg := evt.Content.AsMessage()
	if msg == nil || msg.MsgType != event.MsgText {
		return
	}
	text := strings.TrimSpace(msg.Body)
	if text == "" {
		return
	}

	room := evt.RoomID
	u := application.Utterance{
		UserKey: evt.Sender.String(),
		Text:    text,
		Reply: func(ctx context.Context, reply string) error {
			if _, err := s.sender.SendText(ctx, room, reply); err != nil {
				return fmt.Errorf("sending reply to %s: %w", room, err)
			}
			return nil
		},
	}

	select {
	case s.queue <- u:
	default:
		s.logger.Warn("queue full, dropping message", "room", room, "sender", evt.Sender)
	}
}

func (s *Source) allowedRoom(room id.RoomID) bool {
	if len(s.cfg.Rooms) == 0 {
		return true
	}
	for _, r := range s.cfg.Rooms {
		if id.RoomID(r) == room {
			return true
		}
	}
	return false
}
