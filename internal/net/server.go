package net

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arenasync/server/internal/config"
)

// Server upgrades HTTP requests on one path to websocket Sessions. New and
// dead sessions are communicated to the game loop via channels.
type Server struct {
	listener net.Listener
	httpSrv  *http.Server
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64 // session IDs of dead sessions
	opts     SessionOptions
	log      *zap.Logger
	closeCh  chan struct{}

	joinMu       sync.Mutex
	joinLimiters map[string]*rate.Limiter
	joinsPerMin  int
}

func NewServer(netCfg config.NetworkConfig, rl config.RateLimitConfig, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", netCfg.BindAddress)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		newConns: make(chan *Session, 64),
		deadCh:   make(chan uint64, 64),
		opts: SessionOptions{
			InSize:       netCfg.InQueueSize,
			OutSize:      netCfg.OutQueueSize,
			MaxMsgSize:   netCfg.MaxMsgSize,
			ReadTimeout:  netCfg.ReadTimeout,
			WriteTimeout: netCfg.WriteTimeout,
		},
		log:          log,
		closeCh:      make(chan struct{}),
		joinLimiters: make(map[string]*rate.Limiter),
	}
	if rl.Enabled {
		s.opts.PacketsPerSecond = rl.PacketsPerSecond
		s.opts.Burst = rl.Burst
		s.joinsPerMin = rl.JoinsPerMinute
	}

	path := netCfg.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleUpgrade)
	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// AcceptLoop serves HTTP until Shutdown. Run it in its own goroutine.
func (s *Server) AcceptLoop() {
	if err := s.httpSrv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("http serve failed", zap.Error(err))
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if !s.allowConnect(ip) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	id := s.nextID.Add(1)
	sess := NewSession(conn, id, ip, s.opts, s.log)
	sess.Start()

	s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", ip))

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("connection queue full, rejecting")
		sess.Close()
	}
}

// allowConnect applies the per-IP connection limiter.
func (s *Server) allowConnect(ip string) bool {
	if s.joinsPerMin <= 0 {
		return true
	}
	s.joinMu.Lock()
	defer s.joinMu.Unlock()
	l, ok := s.joinLimiters[ip]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.joinsPerMin)), s.joinsPerMin)
		s.joinLimiters[ip] = l
	}
	return l.Allow()
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.log.Debug("http shutdown", zap.Error(err))
	}
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
