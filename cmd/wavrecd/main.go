// Wavrecd records one WAV file from the sampled ADC input.
//
// It loads configuration, opens the recordings folder, starts the
// HTTP/WebSocket server and records until a cancel input arrives (Escape on
// the keyboard, wavctl cancel, SIGINT or SIGTERM). The file is flushed and
// closed before the process exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/wav-recorder/internal/app"
	"github.com/large-farva/wav-recorder/internal/config"
	"github.com/large-farva/wav-recorder/internal/logging"
)

const logRingSize = 500

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "Path to config TOML (defaults are used when empty)")
		bind        = pflag.String("bind", "", "HTTP bind address (overrides [server] bind)")
		noKeyboard  = pflag.Bool("no-keyboard", false, "Do not read the terminal keyboard")
		noConsole   = pflag.Bool("quiet", false, "Do not print the live min/max line")
		showVersion = pflag.BoolP("version", "v", false, "Print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("wavrecd %s (%s, built %s)\n", app.Version, app.GoVersion, app.BuiltAt)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavrecd: config load failed: %v\n", err)
		os.Exit(1)
	}

	ring := logging.NewRing(logRingSize)
	root, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, ring)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavrecd: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Component(root, "wavrecd")

	opts := app.Options{
		Logger:     root,
		Cfg:        cfg,
		ConfigPath: *configPath,
		Bind:       *bind,
		Keyboard:   cfg.Input.Keyboard && !*noKeyboard,
		Logs:       ring,
	}
	if !*noConsole {
		opts.Console = os.Stdout
	}

	a, err := app.New(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error().Err(err).Str("state", a.State()).Msg("wavrecd failed")
		time.Sleep(50 * time.Millisecond)
		os.Exit(1)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
