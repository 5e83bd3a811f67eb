// Package server exposes a running script over HTTP so an external UI can
// raise events and read or write the script's data.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/gosuda/vbjson/jsonv"
	vbruntime "github.com/gosuda/vbjson/runtime"
)

const DefaultTimeout = 30 * time.Second

var errUnknownSub = errors.New("unknown sub")

// Server routes requests into a Dispatcher. Every VM access happens on the
// dispatch goroutine, so the Dispatcher must be served while the Server
// runs.
type Server struct {
	d       *vbruntime.Dispatcher
	logger  *slog.Logger
	timeout time.Duration
	srv     *fasthttp.Server
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(d *vbruntime.Dispatcher, opts ...Option) *Server {
	s := &Server{
		d:       d,
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "vbjson",
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http listening", "addr", addr)
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

// Handler routes:
//
//	POST /call/{sub}
//	POST /event/{control}/{event}
//	GET  /data/{variable}?path=a.b[0]
//	PUT  /data/{variable}?path=a.b[0]
//	GET  /vars
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	parts := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")
	method := string(ctx.Method())

	switch {
	case len(parts) == 2 && parts[0] == "call":
		if s.allow(ctx, method, fasthttp.MethodPost) {
			s.call(ctx, parts[1])
		}
	case len(parts) == 3 && parts[0] == "event":
		if s.allow(ctx, method, fasthttp.MethodPost) {
			s.event(ctx, parts[1], parts[2])
		}
	case len(parts) == 2 && parts[0] == "data":
		switch method {
		case fasthttp.MethodGet:
			s.getData(ctx, parts[1])
		case fasthttp.MethodPut:
			s.putData(ctx, parts[1])
		default:
			s.allow(ctx, method, fasthttp.MethodGet)
		}
	case len(parts) == 1 && parts[0] == "vars":
		if s.allow(ctx, method, fasthttp.MethodGet) {
			s.vars(ctx)
		}
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found", nil)
	}
	s.logger.Debug("http", "method", method, "path", string(ctx.Path()), "status", ctx.Response.StatusCode())
}

func (s *Server) allow(ctx *fasthttp.RequestCtx, method, want string) bool {
	if method == want {
		return true
	}
	ctx.Response.Header.Set("Allow", want)
	writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed", nil)
	return false
}

func (s *Server) do(fn func(*vbruntime.VM) error) error {
	c, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.d.Do(c, fn)
}

func (s *Server) call(ctx *fasthttp.RequestCtx, sub string) {
	err := s.do(func(vm *vbruntime.VM) error {
		if !vm.HasProcedure(sub) {
			return errUnknownSub
		}
		return vm.CallSub(sub)
	})
	s.finish(ctx, err)
}

func (s *Server) event(ctx *fasthttp.RequestCtx, control, event string) {
	c, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.finish(ctx, s.d.CallEvent(c, control, event))
}

func (s *Server) finish(ctx *fasthttp.RequestCtx, err error) {
	if err == nil {
		ok := jsonv.NewObject()
		ok.Put("ok", jsonv.NewBool(true))
		writeJSON(ctx, fasthttp.StatusOK, ok)
		return
	}
	writeFailure(ctx, err)
}

func (s *Server) getData(ctx *fasthttp.RequestCtx, variable string) {
	path := string(ctx.QueryArgs().Peek("path"))
	var out *jsonv.Value
	err := s.do(func(vm *vbruntime.VM) error {
		v, err := vm.DataGet(variable, path)
		out = v
		return err
	})
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) putData(ctx *fasthttp.RequestCtx, variable string) {
	path := string(ctx.QueryArgs().Peek("path"))
	v, err := jsonv.Parse(string(ctx.PostBody()))
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error(), nil)
		return
	}
	err = s.do(func(vm *vbruntime.VM) error {
		return vm.DataSet(variable, path, v)
	})
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) vars(ctx *fasthttp.RequestCtx) {
	out := jsonv.NewObject()
	err := s.do(func(vm *vbruntime.VM) error {
		for _, name := range vm.Env().Names() {
			out.Put(name, vm.Var(name).JSONValue())
		}
		return nil
	})
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func writeFailure(ctx *fasthttp.RequestCtx, err error) {
	var re *vbruntime.RuntimeError
	switch {
	case errors.Is(err, errUnknownSub):
		writeError(ctx, fasthttp.StatusNotFound, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(ctx, fasthttp.StatusGatewayTimeout, "timed out waiting for the script", nil)
	case errors.As(err, &re):
		writeError(ctx, statusFor(re.Kind), re.Msg, re)
	default:
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error(), nil)
	}
}

func statusFor(kind vbruntime.ErrorKind) int {
	switch kind {
	case vbruntime.PathNotFound, vbruntime.UndefinedProcedure:
		return fasthttp.StatusNotFound
	case vbruntime.PathSyntax, vbruntime.JsonSyntax:
		return fasthttp.StatusBadRequest
	default:
		return fasthttp.StatusUnprocessableEntity
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string, re *vbruntime.RuntimeError) {
	body := jsonv.NewObject()
	body.Put("error", jsonv.NewString(msg))
	if re != nil {
		body.Put("kind", jsonv.NewString(re.Kind.String()))
		if re.Line > 0 {
			body.Put("line", jsonv.NewNumber(float64(re.Line)))
		}
		if re.Proc != "" {
			body.Put("proc", jsonv.NewString(re.Proc))
		}
	}
	writeJSON(ctx, status, body)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v *jsonv.Value) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBodyString(v.String())
}
