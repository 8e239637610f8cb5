package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arenasync/server/internal/net/packet"
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn *websocket.Conn

	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan []byte // game loop reads frames from here
	OutQueue chan []byte // writer goroutine reads from here

	IP string

	// Game loop only.
	PlayerID   uint16
	PlayerName string

	outBuf [][]byte // buffered frames, flushed once per tick

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	limiter      *rate.Limiter // nil = unlimited; readLoop only
	readTimeout  time.Duration
	writeTimeout time.Duration

	log *zap.Logger
}

// SessionOptions carries the per-connection limits from config.
type SessionOptions struct {
	InSize           int
	OutSize          int
	MaxMsgSize       int64
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PacketsPerSecond int
	Burst            int
}

func NewSession(conn *websocket.Conn, id uint64, ip string, opts SessionOptions, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan []byte, opts.InSize),
		OutQueue:     make(chan []byte, opts.OutSize),
		IP:           ip,
		closeCh:      make(chan struct{}),
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
		log:          log.With(zap.Uint64("session", id)),
	}
	if opts.PacketsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = opts.PacketsPerSecond
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.PacketsPerSecond), burst)
	}
	if opts.MaxMsgSize > 0 {
		conn.SetReadLimit(opts.MaxMsgSize)
	}
	s.state.Store(int32(packet.StateConnected))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a frame for this tick. data is copied: callers hand in the
// shared per-tick message buffer, which is reset right after.
// Called only from the game loop goroutine.
func (s *Session) Send(data []byte) {
	if s.closed.Load() || len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.outBuf = append(s.outBuf, buf)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop
// goroutine. Non-blocking: if OutQueue is full the client is too slow and
// is disconnected.
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow client")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Pending returns the number of frames buffered for the next flush.
func (s *Session) Pending() int { return len(s.outBuf) }

// Close shuts down the session. Frames already in OutQueue are still
// written by the writer goroutine, which then closes the connection.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed when the session shuts down.
func (s *Session) Done() <-chan struct{} { return s.closeCh }

// readLoop pushes binary frames onto InQueue for the game loop.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		mt, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if mt != websocket.BinaryMessage {
			s.log.Debug("ignoring non-binary frame", zap.Int("type", mt))
			continue
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Warn("packet rate exceeded, disconnecting")
			return
		}

		// Block until InQueue has space or the session closes; only this
		// client's reader stalls.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop writes queued frames as binary websocket messages. It owns the
// connection's shutdown.
func (s *Session) writeLoop() {
	defer func() {
		s.Close()
		s.conn.Close()
	}()

	for {
		select {
		case data := <-s.OutQueue:
			if err := s.write(data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			s.drain()
			return
		}
	}
}

// drain writes what is left in OutQueue, then a close frame.
func (s *Session) drain() {
	for {
		select {
		case data := <-s.OutQueue:
			if err := s.write(data); err != nil {
				return
			}
		default:
			deadline := time.Now().Add(time.Second)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

func (s *Session) write(data []byte) error {
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}
