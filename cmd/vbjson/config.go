package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gosuda/vbjson/jsonv"
	"github.com/gosuda/vbjson/schema"
)

type fileConfig struct {
	Entry    string          `yaml:"entry"`
	LogLevel string          `yaml:"log_level"`
	Listen   string          `yaml:"listen"`
	Schemas  yaml.Node       `yaml:"schemas"`
	Store    fileStoreConfig `yaml:"store"`
}

type fileStoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Variable string `yaml:"variable"`
	Autosave string `yaml:"autosave"`
}

type schemaConfig struct {
	Template   yaml.Node `yaml:"template"`
	JSONSchema string    `yaml:"json_schema"`
}

type storeConfig struct {
	driver   string
	path     string
	variable string
	autosave time.Duration
}

type appConfig struct {
	script   string
	entry    string
	plain    bool
	listen   string
	logLevel slog.Level
	schemas  *schema.Registry
	store    storeConfig
}

func defaultConfig() appConfig {
	return appConfig{
		logLevel: slog.LevelWarn,
		schemas:  schema.Builtin(),
		store:    storeConfig{driver: "file", variable: "AppData"},
	}
}

func loadConfigFile(path string, cfg *appConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := decodeConfig(f, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// decodeConfig applies a YAML document on top of cfg. Unknown keys are
// rejected.
func decodeConfig(r io.Reader, cfg *appConfig) error {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if s := strings.TrimSpace(fc.Entry); s != "" {
		cfg.entry = s
	}
	if s := strings.TrimSpace(fc.Listen); s != "" {
		cfg.listen = s
	}
	if s := strings.TrimSpace(fc.LogLevel); s != "" {
		if err := cfg.logLevel.UnmarshalText([]byte(s)); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if s := strings.TrimSpace(fc.Store.Driver); s != "" {
		cfg.store.driver = s
	}
	if s := strings.TrimSpace(fc.Store.Path); s != "" {
		cfg.store.path = s
	}
	if s := strings.TrimSpace(fc.Store.Variable); s != "" {
		cfg.store.variable = s
	}
	if s := strings.TrimSpace(fc.Store.Autosave); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("store.autosave: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("store.autosave: negative duration %s", s)
		}
		cfg.store.autosave = d
	}
	return addSchemas(cfg.schemas, &fc.Schemas)
}

func addSchemas(reg *schema.Registry, node *yaml.Node) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("schemas: line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var sc schemaConfig
		if err := node.Content[i+1].Decode(&sc); err != nil {
			return fmt.Errorf("schemas.%s: %w", name, err)
		}
		tpl := jsonv.NewObject()
		if sc.Template.Kind != 0 {
			v, err := nodeToJSON(&sc.Template)
			if err != nil {
				return fmt.Errorf("schemas.%s.template: %w", name, err)
			}
			tpl = v
		}
		if err := reg.Register(name, tpl); err != nil {
			return fmt.Errorf("schemas.%s: %w", name, err)
		}
		if s := strings.TrimSpace(sc.JSONSchema); s != "" {
			if err := reg.AttachJSONSchema(name, s); err != nil {
				return fmt.Errorf("schemas.%s.json_schema: %w", name, err)
			}
		}
	}
	return nil
}

// nodeToJSON converts a YAML node into a JSON value, keeping mapping keys in
// document order.
func nodeToJSON(n *yaml.Node) (*jsonv.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return jsonv.NewNull(), nil
		}
		return nodeToJSON(n.Content[0])
	case yaml.AliasNode:
		return nodeToJSON(n.Alias)
	case yaml.MappingNode:
		obj := jsonv.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			v, err := nodeToJSON(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Put(k.Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := jsonv.NewArray()
		for _, item := range n.Content {
			v, err := nodeToJSON(item)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return jsonv.NewNull(), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return jsonv.NewBool(b), nil
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(strings.ReplaceAll(n.Value, "_", ""), 64)
			if err != nil {
				var i int64
				if derr := n.Decode(&i); derr != nil {
					return nil, fmt.Errorf("line %d: bad number %q", n.Line, n.Value)
				}
				f = float64(i)
			}
			return jsonv.NewNumber(f), nil
		default:
			return jsonv.NewString(n.Value), nil
		}
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}
