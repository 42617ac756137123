package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"neonpong/internal/ansii"
	"neonpong/internal/client"
	"neonpong/internal/config"
	"neonpong/internal/media"
	"neonpong/internal/netwrk"
	"neonpong/internal/packet"
	"neonpong/internal/renderer"
	"neonpong/internal/session"
)

func main() {
	if len(os.Args) == 1 {
		config.LoadConfig("")
	} else {
		config.LoadConfig(os.Args[1])
	}

	slog.SetLogLoggerLevel(slog.Level(config.Config.LogLevel))

	if err := run(); err != nil {
		fmt.Println(string(ansii.Colors.Red)+err.Error()+string(ansii.Styles.Reset))
		os.Exit(1)
	}
}

func run() error {
	if !ansii.IsTerminal() {
		return fmt.Errorf("neon pong needs an interactive terminal")
	}

	codec, err := packet.CodecByName(config.Config.Codec)
	if err != nil {
		return err
	}
	camera, err := media.ByName(config.Config.Camera)
	if err != nil {
		return err
	}

	opts := session.OptionsFromConfig(config.Config)
	r := renderer.New(os.Stdout, opts.Pong, ansii.GetTermSize)
	ctrl := session.NewController(netwrk.NewDialer(config.Config.BrokerURL, codec), camera, r, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keys := client.ReadChunks(os.Stdin)

	fmt.Println("Welcome to neon pong!")
	for {
		fmt.Println("create to host a game, join <code> to join one, q to quit")
		var line []byte
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-keys:
			if !ok {
				return nil
			}
			line = l
		}

		cmd, err := client.HandleUserInput(line)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}

		if err := play(ctx, ctrl, r, opts, keys, cmd); err != nil {
			slog.Debug("game over", slog.Any("error", err))
		}
		fmt.Println(client.StatusLine(ctrl.Status()))
		if ctx.Err() != nil {
			return nil
		}
	}
}

// play switches the terminal to raw mode with mouse reporting for one game and restores it.
func play(ctx context.Context, ctrl *session.Controller, r *renderer.Renderer, opts session.Options, keys <-chan []byte, cmd client.Command) error {
	prev, err := ansii.MakeTermRaw()
	if err != nil {
		return fmt.Errorf("making terminal raw: %w", err)
	}
	defer ansii.RestoreTerm(prev)

	os.Stdout.WriteString(string(ansii.Screen.ClearScreen + ansii.Screen.HideCursor + ansii.Screen.MouseOn))
	defer os.Stdout.WriteString(string(ansii.Screen.MouseOff + ansii.Screen.ShowCursor + ansii.Screen.ClearScreen + ansii.Screen.Home))

	return client.Game(ctx, ctrl, renderer.NewBridge(opts.Pong), r.FieldRows, keys, cmd)
}
