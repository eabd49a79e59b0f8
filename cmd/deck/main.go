package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/ewilliams-labs/rockdj/internal/adapters/connect"
	"github.com/ewilliams-labs/rockdj/internal/app"
	"github.com/ewilliams-labs/rockdj/internal/config"
	"github.com/ewilliams-labs/rockdj/internal/core/bridge"
	"github.com/ewilliams-labs/rockdj/internal/core/session"
	"github.com/ewilliams-labs/rockdj/internal/deck"
	"github.com/ewilliams-labs/rockdj/internal/log"
)

func main() {
	cliApp := &cli.App{
		Name:  "rockdj-deck",
		Usage: "waveform deck for Spotify playback with slices and tap tempo",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "env file to load before the environment",
			},
			&cli.StringFlag{
				Name:    "device",
				Usage:   "name of the Spotify Connect device to drive",
				EnvVars: []string{"DECK_DEVICE_NAME"},
			},
			&cli.StringFlag{
				Name:  "log-file",
				Value: "rockdj-deck.log",
				Usage: "file the deck logs to while the terminal is in use",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "rockdj-deck: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	var files []string
	if f := c.String("env-file"); f != "" {
		files = append(files, f)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.IsSet("device") {
		cfg.DeviceName = c.String("device")
	}

	logFile, err := os.OpenFile(c.String("log-file"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, log.LevelFromString(c.String("log-level")))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.NewBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	player := connect.New(backend.Spotify.API(), logger,
		connect.WithDeviceName(cfg.DeviceName),
		connect.WithPollInterval(cfg.PollInterval),
	)
	s := session.New(ctx, session.Deps{
		Player:  player,
		Starter: backend.Service,
		Slices:  deck.SliceStore(backend.Service),
		Logger:  logger,
		Bridge:  []bridge.Option{bridge.WithReconnectDelay(cfg.ReconnectDelay)},
	})
	defer s.Close()
	defer player.Disconnect(context.WithoutCancel(ctx))

	logger.Infof("deck starting device=%q", cfg.DeviceName)
	program := tea.NewProgram(deck.New(ctx, s, backend.Service, logger),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("deck: %w", err)
	}
	return nil
}
