package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.sr.ht/~sircmpwn/getopt"
	tea "github.com/charmbracelet/bubbletea"

	vbruntime "github.com/gosuda/vbjson/runtime"
	"github.com/gosuda/vbjson/server"
)

const usage = `usage: vbjson [options] script.vb

options:
  -c FILE   read configuration from FILE (YAML)
  -e NAME   Sub to run after the top-level statements
  -p        plain line mode instead of the full screen UI
  -l ADDR   serve the HTTP bridge on ADDR
  -d        debug logging
  -h        show this help`

// parseArgs reads command line flags. Values given on the command line win
// over the configuration file.
func parseArgs(args []string) (appConfig, bool, error) {
	cfg := defaultConfig()
	opts, optind, err := getopt.Getopts(args, "c:e:pl:dh")
	if err != nil {
		return cfg, false, err
	}
	var entry, listen, configPath string
	debug := false
	for _, opt := range opts {
		switch opt.Option {
		case 'c':
			configPath = opt.Value
		case 'e':
			entry = opt.Value
		case 'p':
			cfg.plain = true
		case 'l':
			listen = opt.Value
		case 'd':
			debug = true
		case 'h':
			return cfg, true, nil
		}
	}
	if configPath != "" {
		if err := loadConfigFile(configPath, &cfg); err != nil {
			return cfg, false, err
		}
	}
	if entry != "" {
		cfg.entry = entry
	}
	if listen != "" {
		cfg.listen = listen
	}
	if debug {
		cfg.logLevel = slog.LevelDebug
	}
	rest := args[optind:]
	if len(rest) != 1 {
		return cfg, false, errors.New("expected exactly one script path")
	}
	cfg.script = rest[0]
	return cfg, false, nil
}

func main() {
	cfg, help, err := parseArgs(os.Args)
	if help {
		fmt.Println(usage)
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel}))

	if err := run(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}

func run(cfg appConfig, logger *slog.Logger) error {
	switch {
	case cfg.listen != "":
		return runServer(cfg, logger)
	case cfg.plain:
		s, err := openSession(cfg, logger, printOutput)
		if err != nil {
			return err
		}
		return errors.Join(runPlain(cfg, s), s.close())
	default:
		events, sink := consoleChannel()
		s, err := openSession(cfg, logger, sink)
		if err != nil {
			return err
		}
		if err := s.serve(); err != nil {
			return errors.Join(err, s.close())
		}
		p := tea.NewProgram(newModel(cfg, events, s), tea.WithAltScreen())
		_, err = p.Run()
		if err != nil {
			err = fmt.Errorf("tui: %w", err)
		}
		return errors.Join(err, s.close())
	}
}

func runServer(cfg appConfig, logger *slog.Logger) error {
	s, err := openSession(cfg, logger, func(o vbruntime.Output) {
		logger.Info("output", "source", o.Source, "text", o.Text)
	})
	if err != nil {
		return err
	}
	if err := s.start(); err != nil {
		logger.Error("main failed", "err", err)
	}
	srv := server.New(s.events, server.WithLogger(logger))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		<-sig
		_ = srv.Shutdown()
	}()

	logger.Info("listening", "addr", cfg.listen)
	err = srv.ListenAndServe(cfg.listen)
	return errors.Join(err, s.close())
}
