package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/panjf2000/gnet/v2"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lojhan/chainmap/internal/resp"
)

var ErrNotRunning = errors.New("server is not running")

type CommandHandler func(args []resp.Value) resp.Value

// Server runs command handlers on gnet event loops. Handlers registered
// before Start must be safe to call from several loops at once.
type Server struct {
	gnet.BuiltinEventEngine

	mu        sync.RWMutex
	handlers  map[string]CommandHandler
	eng       gnet.Engine
	running   bool
	ready     chan struct{}
	readyOnce sync.Once

	multicore bool
	logger    *zap.Logger
	clients   atomic.Int64
	commands  atomic.Int64
}

func NewServer(logger *zap.Logger, multicore bool) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		handlers:  make(map[string]CommandHandler),
		ready:     make(chan struct{}),
		multicore: multicore,
		logger:    logger,
	}
}

func (s *Server) RegisterCommand(name string, handler CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[strings.ToUpper(name)] = handler
}

func (s *Server) GetHandler(name string) CommandHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[strings.ToUpper(name)]
}

// Start blocks serving addr, e.g. "tcp://:6379", until Stop is called.
func (s *Server) Start(addr string) error {
	err := gnet.Run(s, addr,
		gnet.WithMulticore(s.multicore),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithLogger(s.logger.Sugar()),
	)
	if err != nil {
		return fmt.Errorf("failed to serve %s: %w", addr, err)
	}
	return nil
}

// Ready is closed once the engine is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	eng, running := s.eng, s.running
	s.mu.RUnlock()

	if !running {
		return ErrNotRunning
	}
	return eng.Stop(ctx)
}

func (s *Server) ClientCount() int64 {
	return s.clients.Load()
}

func (s *Server) CommandCount() int64 {
	return s.commands.Load()
}

func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.mu.Lock()
	s.eng = eng
	s.running = true
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("server listening", zap.Bool("multicore", s.multicore))
	return gnet.None
}

func (s *Server) OnShutdown(gnet.Engine) {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("server stopped")
}

// connState remembers how many inbound bytes the pending frame needs, so a
// large frame arriving in small reads is not re-decoded on every one.
type connState struct {
	need int
}

func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	c.SetContext(&connState{})
	s.clients.Inc()
	s.logger.Debug("client connected", zap.String("remote", remoteAddr(c)))
	return nil, gnet.None
}

func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	s.clients.Dec()
	if err != nil {
		s.logger.Debug("client disconnected", zap.String("remote", remoteAddr(c)), zap.Error(err))
	} else {
		s.logger.Debug("client disconnected", zap.String("remote", remoteAddr(c)))
	}
	return gnet.None
}

// OnTraffic answers every complete command in the inbound buffer and leaves
// a trailing partial frame for the next read.
func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	st, ok := c.Context().(*connState)
	if !ok {
		st = &connState{}
		c.SetContext(st)
	}
	if c.InboundBuffered() < st.need {
		return gnet.None
	}

	buf, err := c.Peek(-1)
	if err != nil {
		s.logger.Error("reading inbound buffer", zap.String("remote", remoteAddr(c)), zap.Error(err))
		return gnet.Close
	}

	out := bytebufferpool.Get()
	defer bytebufferpool.Put(out)

	consumed, action, err := s.process(st, buf, out)
	if err != nil {
		s.logger.Warn("protocol error", zap.String("remote", remoteAddr(c)), zap.Error(err))
	}

	if _, err := c.Discard(consumed); err != nil {
		s.logger.Error("discarding inbound buffer", zap.Error(err))
		return gnet.Close
	}

	if len(out.B) > 0 {
		if _, err := c.Write(out.B); err != nil {
			s.logger.Warn("writing reply", zap.String("remote", remoteAddr(c)), zap.Error(err))
			return gnet.Close
		}
	}

	return action
}

// process appends a reply to out for each complete frame at the front of
// buf and returns how many bytes those frames took. A trailing partial
// frame sets st.need to the inbound length worth decoding again.
func (s *Server) process(st *connState, buf []byte, out *bytebufferpool.ByteBuffer) (int, gnet.Action, error) {
	st.need = 0

	action := gnet.None
	consumed := 0
	for consumed < len(buf) && action == gnet.None {
		value, n, err := resp.Decode(buf[consumed:])
		if errors.Is(err, resp.ErrIncomplete) {
			st.need = resp.Needed(err)
			break
		}
		if err != nil {
			out.B = resp.Append(out.B, resp.ErrorValue("ERR protocol error"))
			return consumed, gnet.Close, err
		}
		consumed += n

		var reply resp.Value
		reply, action = s.dispatch(value)
		out.B = resp.Append(out.B, reply)
	}

	return consumed, action, nil
}

func (s *Server) dispatch(value resp.Value) (resp.Value, gnet.Action) {
	if value.Type != resp.Array {
		return resp.ErrorValue("ERR protocol error: expected array"), gnet.None
	}

	if len(value.Array) == 0 {
		return resp.ErrorValue("ERR empty command"), gnet.None
	}

	cmdValue := value.Array[0]
	if cmdValue.Type != resp.BulkString {
		return resp.ErrorValue("ERR protocol error: command must be bulk string"), gnet.None
	}

	cmdName := strings.ToUpper(cmdValue.Str)
	if cmdName == "QUIT" {
		return resp.OKValue(), gnet.Close
	}

	handler := s.GetHandler(cmdName)
	if handler == nil {
		return resp.ErrorValue(fmt.Sprintf("ERR unknown command '%s'", cmdName)), gnet.None
	}

	s.commands.Inc()
	return handler(value.Array[1:]), gnet.None
}

func remoteAddr(c gnet.Conn) string {
	if addr := c.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
