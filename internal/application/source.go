package application

import "context"

// Utterance is one message received from a chat transport.
type Utterance struct {
	UserKey string
	Text    string
	// Reply delivers the interpreter's answer back over the originating transport.
	Reply func(ctx context.Context, text string) error
}

type MessageSource interface {
	Start(ctx context.Context) error
	Stop() error
	Next(ctx context.Context) (Utterance, error)
	Name() string
}
