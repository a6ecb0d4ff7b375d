package matrix

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"smart-home-bot/internal/application"
)

type sentMessage struct {
	room id.RoomID
	text string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingSender) SendText(_ context.Context, room id.RoomID, text string) (*mautrix.RespSendEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{room: room, text: text})
	return &mautrix.RespSendEvent{}, nil
}

func newTestSource(rooms ...string) (*Source, *recordingSender) {
	sender := &recordingSender{}
	cfg := Config{UserID: "@bot:home.lan", Rooms: rooms}
	s := newSource(cfg, sender, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.started = time.Now().Add(-time.Minute)
	return s, sender
}

func textEvent(sender, room, body string, at time.Time) *event.Event {
	return &event.Event{
		Sender:    id.UserID(sender),
		RoomID:    id.RoomID(room),
		Timestamp: at.UnixMilli(),
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    body,
		}},
	}
}

func TestHandleMessage_QueuesAndReplies(t *testing.T) {
	s, sender := newTestSource()

	s.handleMessage(context.Background(), textEvent("@alice:home.lan", "!kitchen:home.lan", " turn on the kettle ", time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "@alice:home.lan", u.UserKey)
	assert.Equal(t, "turn on the kettle", u.Text)

	require.NoError(t, u.Reply(ctx, "Kettle: condition = ON"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, id.RoomID("!kitchen:home.lan"), sender.sent[0].room)
	assert.Equal(t, "Kettle: condition = ON", sender.sent[0].text)
}

func TestHandleMessage_Ignores(t *testing.T) {
	s, _ := newTestSource("!home:home.lan")
	now := time.Now()

	notice := textEvent("@alice:home.lan", "!home:home.lan", "hello", now)
	notice.Content.Parsed.(*event.MessageEventContent).MsgType = event.MsgNotice

	events := map[string]*event.Event{
		"own message": textEvent("@bot:home.lan", "!home:home.lan", "hello", now),
		"history":     textEvent("@alice:home.lan", "!home:home.lan", "hello", now.Add(-time.Hour)),
		"other room":  textEvent("@alice:home.lan", "!other:home.lan", "hello", now),
		"blank body":  textEvent("@alice:home.lan", "!home:home.lan", "   ", now),
		"notice":      notice,
	}

	for name, evt := range events {
		s.handleMessage(context.Background(), evt)
		assert.Empty(t, s.queue, name)
	}
}

func TestNext_AfterStop(t *testing.T) {
	s, _ := newTestSource()
	require.NoError(t, s.Stop())

	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, application.ErrSourceClosed)
}
