package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/gosuda/vbjson"
	"github.com/gosuda/vbjson/jsonv"
	"github.com/gosuda/vbjson/ledger"
	vbruntime "github.com/gosuda/vbjson/runtime"
	"github.com/gosuda/vbjson/store"
)

// session owns one compiled script, the dispatcher that serialises access
// to it and the store its data variable is persisted in.
type session struct {
	cfg      appConfig
	logger   *slog.Logger
	vm       *vbruntime.VM
	console  *vbruntime.Console
	events   *vbruntime.Dispatcher
	store    store.Store
	variable string

	sched  gocron.Scheduler
	cancel context.CancelFunc
	done   chan struct{}
}

func openSession(cfg appConfig, logger *slog.Logger, sink func(vbruntime.Output)) (*session, error) {
	ht := vbruntime.NewHostTable()
	console := vbruntime.NewConsole(sink)
	console.Register(ht)

	vm, err := vbjson.CompileFile(cfg.script,
		vbruntime.WithHost(ht),
		vbruntime.WithSchemas(cfg.schemas),
		vbruntime.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	variable := cfg.store.variable
	if variable == "" {
		variable = "AppData"
	}
	ledger.Register(ht, vm, variable)

	st, err := store.Open(cfg.store.driver, cfg.store.path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &session{
		cfg:      cfg,
		logger:   logger,
		vm:       vm,
		console:  console,
		events:   vbruntime.NewDispatcher(vm, vbruntime.IgnoreMissing),
		store:    st,
		variable: variable,
	}
	if err := s.restore(context.Background()); err != nil {
		st.Close()
		return nil, err
	}
	s.events.OnError(func(err error) {
		logger.Warn("event failed", "err", err)
	})
	return s, nil
}

// restore seeds the data variable from the store, or from a fresh Root
// document when nothing was saved yet.
func (s *session) restore(ctx context.Context) error {
	root, err := s.store.Load(ctx, s.variable)
	switch {
	case errors.Is(err, store.ErrNotFound):
		root, err = s.cfg.schemas.Instantiate("Root")
		if err != nil {
			return err
		}
		s.logger.Debug("data initialised", "variable", s.variable)
	case err != nil:
		return fmt.Errorf("load %s: %w", s.variable, err)
	default:
		s.logger.Debug("data restored", "variable", s.variable, "digest", store.Digest(root))
	}
	s.vm.SetVar(s.variable, vbruntime.JSON(ledger.EnsureDefaults(root)))
	return nil
}

// start serves the dispatcher and runs the script.
func (s *session) start() error {
	if err := s.serve(); err != nil {
		return err
	}
	return s.runEntry()
}

// serve begins draining the dispatcher on its own goroutine and arms
// autosave.
func (s *session) serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = s.events.Serve(ctx)
	}()
	if s.cfg.store.autosave > 0 {
		return s.scheduleAutosave(s.cfg.store.autosave)
	}
	return nil
}

// runEntry runs the top-level statements and the configured entry Sub.
func (s *session) runEntry() error {
	return s.events.Do(context.Background(), func(vm *vbruntime.VM) error {
		return vm.Run(s.cfg.entry)
	})
}

func (s *session) scheduleAutosave(every time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	_, err = sched.NewJob(gocron.DurationJob(every), gocron.NewTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), every)
		defer cancel()
		if err := s.save(ctx); err != nil {
			s.logger.Warn("autosave failed", "err", err)
		}
	}))
	if err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	sched.Start()
	s.sched = sched
	return nil
}

// call runs a declared procedure through the dispatcher.
func (s *session) call(ctx context.Context, name string) error {
	return s.events.Do(ctx, func(vm *vbruntime.VM) error {
		if !vm.HasProcedure(name) {
			return fmt.Errorf("no procedure named %s", name)
		}
		return vm.CallSub(name)
	})
}

func (s *session) event(ctx context.Context, control, event string) error {
	return s.events.CallEvent(ctx, control, event)
}

func (s *session) get(ctx context.Context, variable, path string) (*jsonv.Value, error) {
	var out *jsonv.Value
	err := s.events.Do(ctx, func(vm *vbruntime.VM) error {
		v, err := vm.DataGet(variable, path)
		out = v
		return err
	})
	return out, err
}

func (s *session) set(ctx context.Context, variable, path string, value *jsonv.Value) error {
	return s.events.Do(ctx, func(vm *vbruntime.VM) error {
		return vm.DataSet(variable, path, value)
	})
}

// vars returns every global in declaration order as one object.
func (s *session) vars(ctx context.Context) (*jsonv.Value, error) {
	out := jsonv.NewObject()
	err := s.events.Do(ctx, func(vm *vbruntime.VM) error {
		for _, name := range vm.Env().Names() {
			out.Put(name, vm.Var(name).JSONValue())
		}
		return nil
	})
	return out, err
}

func (s *session) save(ctx context.Context) error {
	root, err := s.get(ctx, s.variable, "")
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, s.variable, root); err != nil {
		return fmt.Errorf("save %s: %w", s.variable, err)
	}
	s.logger.Debug("data saved", "variable", s.variable)
	return nil
}

func (s *session) history(ctx context.Context) ([]store.Snapshot, error) {
	return s.store.History(ctx, s.variable)
}

// close stops autosave, saves the data variable once more and releases the
// store.
func (s *session) close() error {
	var errs []error
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.cancel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		errs = append(errs, s.save(ctx))
		cancel()
		s.cancel()
		<-s.done
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}
