package client

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"neonpong/internal/renderer"
	"neonpong/internal/session"
)

// Game runs one session with the keyboard attached and blocks until it is over. Quitting
// before a friend connects cancels the attempt; quitting during play leaves the game. Both
// count as a clean exit.
func Game(parent context.Context, ctrl *session.Controller, bridge *renderer.Bridge, fieldRows func() int, keys <-chan []byte, cmd Command) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		if cmd.Kind == Join {
			return ctrl.JoinGame(gctx, cmd.Code)
		}
		return ctrl.CreateGame(gctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case buf, ok := <-keys:
				if !ok {
					quit(ctrl, cancel)
					return nil
				}
				for _, ev := range renderer.ProcessInput(buf) {
					handleGameInput(gctx, ctrl, bridge, fieldRows, cancel, ev)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && parent.Err() == nil {
		return nil
	}
	return err
}

func handleGameInput(ctx context.Context, ctrl *session.Controller, bridge *renderer.Bridge, fieldRows func() int, cancel context.CancelFunc, ev renderer.Event) {
	switch ev.Action {
	case renderer.Quit:
		quit(ctrl, cancel)
	case renderer.Refresh:
		if err := ctrl.RefreshMedia(ctx); err != nil {
			slog.Debug("camera refresh", slog.Any("error", err))
		}
	default:
		if y, changed := bridge.Apply(ev, fieldRows()); changed {
			ctrl.SetPaddle(y)
		}
	}
}

func quit(ctrl *session.Controller, cancel context.CancelFunc) {
	switch ctrl.Status().State {
	case session.Connected, session.Playing:
		ctrl.Leave()
	default:
		cancel()
	}
}
