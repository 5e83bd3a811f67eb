package vbruntime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/edwingeng/deque"
)

// MissingPolicy decides what happens when a posted procedure is not
// declared.
type MissingPolicy int

const (
	IgnoreMissing MissingPolicy = iota
	FailMissing
)

type job struct {
	name  string
	event bool
	fn    func(*VM) error
	done  chan error
}

// Dispatcher serialises every entry into a VM. Posts may come from any
// goroutine; jobs run one at a time, in order, on whichever goroutine calls
// Drain or Serve.
type Dispatcher struct {
	vm      *VM
	policy  MissingPolicy
	logger  *slog.Logger
	onError func(error)

	mu    sync.Mutex
	queue deque.Deque
	wake  chan struct{}
}

func NewDispatcher(vm *VM, policy MissingPolicy) *Dispatcher {
	return &Dispatcher{
		vm:     vm,
		policy: policy,
		logger: vm.logger,
		queue:  deque.NewDeque(),
		wake:   make(chan struct{}, 1),
	}
}

// OnError sets the handler for failures of fire-and-forget posts run by
// Serve.
func (d *Dispatcher) OnError(fn func(error)) {
	d.mu.Lock()
	d.onError = fn
	d.mu.Unlock()
}

// Post queues a call to the named procedure.
func (d *Dispatcher) Post(name string) {
	d.push(&job{name: name})
}

// PostEvent queues the handler for an event on a control, by the
// `<control>_<event>` naming convention.
func (d *Dispatcher) PostEvent(control, event string) {
	d.push(&job{name: control + "_" + event, event: true})
}

// Call queues a procedure call and waits for it to finish.
func (d *Dispatcher) Call(ctx context.Context, name string) error {
	return d.wait(ctx, &job{name: name, done: make(chan error, 1)})
}

// CallEvent is PostEvent that waits for the handler to finish.
func (d *Dispatcher) CallEvent(ctx context.Context, control, event string) error {
	return d.wait(ctx, &job{name: control + "_" + event, event: true, done: make(chan error, 1)})
}

// Do runs fn on the dispatch goroutine and waits for it. Hosts use it to
// read or write data between procedure calls.
func (d *Dispatcher) Do(ctx context.Context, fn func(*VM) error) error {
	return d.wait(ctx, &job{fn: fn, done: make(chan error, 1)})
}

func (d *Dispatcher) wait(ctx context.Context, j *job) error {
	d.push(j)
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) push(j *job) {
	d.mu.Lock()
	d.queue.PushBack(j)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) pop() (*job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue.Empty() {
		return nil, false
	}
	j := d.queue.PopFront().(*job)
	return j, true
}

func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// Drain runs every queued job on the calling goroutine, including jobs
// queued while draining. It returns the errors of fire-and-forget posts;
// waiting callers receive their own error instead.
func (d *Dispatcher) Drain() []error {
	var errs []error
	for {
		j, ok := d.pop()
		if !ok {
			return errs
		}
		err := d.run(j)
		if j.done != nil {
			j.done <- err
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
}

// Serve drains the queue whenever work arrives until ctx is done.
func (d *Dispatcher) Serve(ctx context.Context) error {
	for {
		for _, err := range d.Drain() {
			d.mu.Lock()
			handler := d.onError
			d.mu.Unlock()
			if handler != nil {
				handler(err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.wake:
		}
	}
}

func (d *Dispatcher) run(j *job) error {
	if j.fn != nil {
		return j.fn(d.vm)
	}
	if !d.vm.HasProcedure(j.name) {
		if d.policy == IgnoreMissing {
			d.logger.Debug("dispatch skipped", "proc", j.name, "event", j.event)
			return nil
		}
	}
	d.logger.Debug("dispatch", "proc", j.name, "event", j.event)
	return d.vm.CallSub(j.name)
}
