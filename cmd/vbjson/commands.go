package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosuda/vbjson/jsonv"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  <Sub>                       run a declared Sub
  event <control> <event>     raise <control>_<event>
  get <var> [path]            print a value
  set <var> <path|.> <json>   write a value
  vars                        list global variables
  procs                       list declared procedures
  save                        save the data variable now
  history                     list saved versions
  help                        show this text
  quit                        leave`

// nextWord splits the first whitespace-delimited word off s.
func nextWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

func rootPath(p string) string {
	if p == "." {
		return ""
	}
	return p
}

// execCommand runs one REPL line and returns the text to show.
func (s *session) execCommand(ctx context.Context, line string) (string, error) {
	cmd, rest := nextWord(line)
	switch strings.ToLower(cmd) {
	case "":
		return "", nil
	case "quit", "exit", ":q":
		return "", errQuit
	case "help", "?":
		return helpText, nil
	case "vars":
		v, err := s.vars(ctx)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for i, name := range v.Keys() {
			if i > 0 {
				b.WriteByte('\n')
			}
			item, _ := v.Get(name)
			fmt.Fprintf(&b, "%s = %s", name, item.String())
		}
		return b.String(), nil
	case "procs":
		names := make([]string, 0)
		for _, p := range s.vm.Procedures() {
			names = append(names, fmt.Sprintf("%s %s", p.Kind, p.Name))
		}
		return strings.Join(names, "\n"), nil
	case "get":
		variable, path := nextWord(rest)
		if variable == "" {
			return "", fmt.Errorf("usage: get <var> [path]")
		}
		v, err := s.get(ctx, variable, rootPath(path))
		if err != nil {
			return "", err
		}
		return v.Indent(), nil
	case "set":
		variable, rest := nextWord(rest)
		path, text := nextWord(rest)
		if variable == "" || path == "" || text == "" {
			return "", fmt.Errorf("usage: set <var> <path|.> <json>")
		}
		v, err := jsonv.Parse(text)
		if err != nil {
			return "", err
		}
		return "", s.set(ctx, variable, rootPath(path), v)
	case "event":
		control, event := nextWord(rest)
		if control == "" || event == "" || strings.ContainsAny(event, " \t") {
			return "", fmt.Errorf("usage: event <control> <event>")
		}
		return "", s.event(ctx, control, event)
	case "save":
		if err := s.save(ctx); err != nil {
			return "", err
		}
		return "saved " + s.variable, nil
	case "history":
		snaps, err := s.history(ctx)
		if err != nil {
			return "", err
		}
		if len(snaps) == 0 {
			return "no saved versions", nil
		}
		lines := make([]string, len(snaps))
		for i, sn := range snaps {
			digest := sn.Digest
			if len(digest) > 12 {
				digest = digest[:12]
			}
			lines[i] = fmt.Sprintf("%3d  %s  %6d  %s", sn.ID, sn.CreatedAt.Format("2006-01-02 15:04:05"), sn.Size, digest)
		}
		return strings.Join(lines, "\n"), nil
	}
	if rest != "" {
		return "", fmt.Errorf("%s takes no arguments; Subs are called by name alone", cmd)
	}
	return "", s.call(ctx, cmd)
}
