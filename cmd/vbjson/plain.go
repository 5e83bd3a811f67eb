package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	vbruntime "github.com/gosuda/vbjson/runtime"
)

const historyFile = ".vbjson_history"

var (
	red  = color.New(color.FgRed).SprintFunc()
	cyan = color.New(color.FgCyan).SprintFunc()
)

func printOutput(o vbruntime.Output) {
	if o.Source == "MsgBox" {
		fmt.Println(cyan("[MsgBox]"), o.Text)
		return
	}
	fmt.Println(o.Text)
}

func runPlain(cfg appConfig, s *session) error {
	if err := s.start(); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, p := range s.vm.Procedures() {
			if strings.HasPrefix(strings.ToLower(p.Name), strings.ToLower(line)) {
				out = append(out, p.Name)
			}
		}
		return out
	})

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	prompt := filepath.Base(cfg.script) + "> "
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		out, err := s.execCommand(context.Background(), line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}
