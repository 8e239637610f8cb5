package handler

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arenasync/server/internal/config"
	"github.com/arenasync/server/internal/data"
	"github.com/arenasync/server/internal/game"
	"github.com/arenasync/server/internal/net"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/world"
)

const testDefs = `
loot_radius:
  ammo: 1.0
items:
  - { name: 9mm, class: ammo, max_stack: 120 }
`

const testMap = `
name: arena
seed: 3
width: 64
height: 64
spawn_points:
  - [10, 10]
`

type harness struct {
	game *game.Game
	reg  *packet.Registry
	srv  *net.Server
	url  string
}

func newHarness(t *testing.T, maxPlayers int) *harness {
	t.Helper()
	defs, err := data.ParseDefTable([]byte(testDefs))
	if err != nil {
		t.Fatalf("defs: %v", err)
	}
	m, err := data.ParseMapDef([]byte(testMap))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	g, err := game.New(game.Options{
		Config:     config.GameConfig{TickRate: 30, GridCellSize: 16, LootMaxObjects: 10, LootMaxLevels: 4},
		MaxPlayers: maxPlayers,
		Defs:       defs,
		Map:        m,
	})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	reg := packet.NewRegistry(g.Types(), zap.NewNop())
	RegisterAll(reg, &Deps{Game: g, Log: zap.NewNop()})

	srv, err := net.NewServer(config.NetworkConfig{
		BindAddress:  "127.0.0.1:0",
		Path:         "/play",
		InQueueSize:  8,
		OutQueueSize: 8,
		MaxMsgSize:   1024,
		WriteTimeout: time.Second,
		ReadTimeout:  5 * time.Second,
	}, config.RateLimitConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go srv.AcceptLoop()
	t.Cleanup(srv.Shutdown)
	return &harness{game: g, reg: reg, srv: srv, url: "ws://" + srv.Addr().String() + "/play"}
}

// connect dials a client and returns both ends.
func (h *harness) connect(t *testing.T) (*websocket.Conn, *net.Session) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	select {
	case sess := <-h.srv.NewSessions():
		return conn, sess
	case <-time.After(2 * time.Second):
		t.Fatal("no session accepted")
		return nil, nil
	}
}

func (h *harness) dispatch(t *testing.T, sess *net.Session, typ packet.MsgType, msg packet.Serializer) error {
	t.Helper()
	ms := packet.NewMsgStream(64, h.game.Types())
	ms.SerializeMsg(typ, msg)
	return h.reg.Dispatch(sess, sess.State, ms.Bytes())
}

// readFrame reads one frame and returns a reader over it.
func (h *harness) readFrame(t *testing.T, conn *websocket.Conn) *packet.MsgStream {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return packet.NewMsgReader(data, h.game.Types())
}

func TestHandleJoin_SpawnsPlayer(t *testing.T) {
	h := newHarness(t, 4)
	conn, sess := h.connect(t)

	err := h.dispatch(t, sess, packet.MsgJoin, &packet.JoinMsg{Protocol: packet.ProtocolVersion, Name: "carol"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sess.State() != packet.StateJoined {
		t.Fatalf("expected Joined state, got=%s", sess.State())
	}
	if sess.PlayerID == 0 || sess.PlayerName != "carol" {
		t.Fatalf("session not bound: id=%d name=%q", sess.PlayerID, sess.PlayerName)
	}
	if h.game.Players.Count() != 1 {
		t.Fatalf("expected 1 player, got=%d", h.game.Players.Count())
	}

	sess.FlushOutput()
	ms := h.readFrame(t, conn)
	if typ, _ := ms.Next(); typ != packet.MsgJoined {
		t.Fatalf("expected Joined, got=%s", typ)
	}
	var joined packet.JoinedMsg
	joined.Deserialize(ms.Stream())
	if joined.PlayerID != sess.PlayerID {
		t.Fatalf("joined id=%d session id=%d", joined.PlayerID, sess.PlayerID)
	}
	ms = h.readFrame(t, conn)
	if typ, _ := ms.Next(); typ != packet.MsgMap {
		t.Fatalf("expected Map, got=%s", typ)
	}
}

func TestHandleJoin_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		protocol uint16
		fill     bool
		stop     bool
		reason   string
	}{
		{name: "protocol", protocol: packet.ProtocolVersion + 1, reason: ReasonInvalidProtocol},
		{name: "full", protocol: packet.ProtocolVersion, fill: true, reason: ReasonGameFull},
		{name: "stopped", protocol: packet.ProtocolVersion, stop: true, reason: ReasonGameOver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, 1)
			if tc.fill {
				_, first := h.connect(t)
				if err := h.dispatch(t, first, packet.MsgJoin, &packet.JoinMsg{Protocol: packet.ProtocolVersion}); err != nil {
					t.Fatalf("first join: %v", err)
				}
			}
			if tc.stop {
				h.game.Stop()
			}
			conn, sess := h.connect(t)
			if err := h.dispatch(t, sess, packet.MsgJoin, &packet.JoinMsg{Protocol: tc.protocol, Name: "x"}); err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if sess.State() != packet.StateDisconnecting || sess.PlayerID != 0 {
				t.Fatalf("expected rejected session, state=%s id=%d", sess.State(), sess.PlayerID)
			}

			sess.FlushOutput()
			ms := h.readFrame(t, conn)
			if typ, _ := ms.Next(); typ != packet.MsgDisconnect {
				t.Fatalf("expected Disconnect, got=%s", typ)
			}
			var dc packet.DisconnectMsg
			dc.Deserialize(ms.Stream())
			if dc.Reason != tc.reason {
				t.Fatalf("expected reason %q, got=%q", tc.reason, dc.Reason)
			}
		})
	}
}

func TestHandlers_StateGating(t *testing.T) {
	h := newHarness(t, 4)
	_, sess := h.connect(t)

	// Input before Join is refused by the registry.
	if err := h.dispatch(t, sess, packet.MsgInput, packet.NewInputMsg()); err == nil {
		t.Fatal("expected state error for Input before Join")
	}
	if err := h.dispatch(t, sess, packet.MsgJoin, &packet.JoinMsg{Protocol: packet.ProtocolVersion}); err != nil {
		t.Fatalf("join: %v", err)
	}
	// A second Join is refused once joined.
	if err := h.dispatch(t, sess, packet.MsgJoin, &packet.JoinMsg{Protocol: packet.ProtocolVersion}); err == nil {
		t.Fatal("expected state error for second Join")
	}
	if h.game.Players.Count() != 1 {
		t.Fatalf("expected 1 player, got=%d", h.game.Players.Count())
	}
}

func TestHandleInput_MovesPlayer(t *testing.T) {
	h := newHarness(t, 4)
	_, sess := h.connect(t)
	if err := h.dispatch(t, sess, packet.MsgJoin, &packet.JoinMsg{Protocol: packet.ProtocolVersion}); err != nil {
		t.Fatalf("join: %v", err)
	}
	o, ok := h.game.Players.Get(world.ObjectID(sess.PlayerID))
	if !ok {
		t.Fatal("player missing")
	}
	start := o.Pos

	in := packet.NewInputMsg()
	in.MoveDown = true
	if err := h.dispatch(t, sess, packet.MsgInput, in); err != nil {
		t.Fatalf("input: %v", err)
	}
	h.game.Update(time.Second / 30)
	if o.Pos.Y == start.Y {
		t.Fatalf("player did not move: %v", o.Pos)
	}
	if o.Pos.X != start.X {
		t.Fatalf("unexpected horizontal movement: %v -> %v", start, o.Pos)
	}
}

func TestHandleDisconnect_MarksSession(t *testing.T) {
	h := newHarness(t, 4)
	_, sess := h.connect(t)
	if err := h.dispatch(t, sess, packet.MsgJoin, &packet.JoinMsg{Protocol: packet.ProtocolVersion}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := h.dispatch(t, sess, packet.MsgDisconnect, &packet.DisconnectMsg{Reason: "bye"}); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if sess.State() != packet.StateDisconnecting {
		t.Fatalf("expected Disconnecting, got=%s", sess.State())
	}
}
