package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrSourceClosed is returned by MessageSource.Next once the source will not
// produce more utterances.
var ErrSourceClosed = errors.New("message source closed")

// UtteranceHandler turns one utterance into a reply. *Interpreter implements it.
type UtteranceHandler interface {
	Handle(ctx context.Context, text, userKey string) Result
}

type Assistant struct {
	sources  []MessageSource
	handler  UtteranceHandler
	notifier Notifier
	workers  int
	logger   *slog.Logger
}

func NewAssistant(
	sources []MessageSource,
	handler UtteranceHandler,
	notifier Notifier,
	workers int,
	logger *slog.Logger,
) *Assistant {
	if workers <= 0 {
		workers = 1
	}
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &Assistant{
		sources:  sources,
		handler:  handler,
		notifier: notifier,
		workers:  workers,
		logger:   logger,
	}
}

// Run starts every source and processes utterances until ctx is cancelled or
// all sources are closed.
func (a *Assistant) Run(ctx context.Context) error {
	if len(a.sources) == 0 {
		return errors.New("no message sources configured")
	}

	for _, src := range a.sources {
		a.logger.Info("starting message source", "source", src.Name())
		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("starting %s: %w", src.Name(), err)
		}
		defer func(src MessageSource) {
			if err := src.Stop(); err != nil {
				a.logger.Error("stopping message source", "source", src.Name(), "error", err)
			}
		}(src)
	}

	queue := make(chan Utterance)

	var pumps sync.WaitGroup
	for _, src := range a.sources {
		pumps.Add(1)
		go func(src MessageSource) {
			defer pumps.Done()
			a.pump(ctx, src, queue)
		}(src)
	}
	go func() {
		pumps.Wait()
		close(queue)
	}()

	a.logger.Info("assistant ready, waiting for messages", "workers", a.workers)

	var workers sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for u := range queue {
				a.process(ctx, u)
			}
		}()
	}
	workers.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (a *Assistant) pump(ctx context.Context, src MessageSource, queue chan<- Utterance) {
	for {
		u, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrSourceClosed) {
				a.logger.Info("message source finished", "source", src.Name())
				return
			}
			a.logger.Error("receiving message", "source", src.Name(), "error", err)
			continue
		}

		if strings.TrimSpace(u.Text) == "" {
			continue
		}

		select {
		case queue <- u:
		case <-ctx.Done():
			return
		}
	}
}

func (a *Assistant) process(ctx context.Context, u Utterance) {
	res := a.handler.Handle(ctx, u.Text, u.UserKey)

	if u.Reply != nil {
		if err := u.Reply(ctx, res.Reply); err != nil {
			a.logger.Error("sending reply", "user", u.UserKey, "error", err)
		}
	}

	if len(res.Mutations) == 0 {
		return
	}
	if err := a.notifier.Notify(ctx, strings.Join(res.Mutations, "\n")); err != nil {
		a.logger.Error("notifying result", "error", err)
	}
}
