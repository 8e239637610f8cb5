package packet

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"

	"github.com/arenasync/server/internal/geom"
)

func TestMsgStream_BatchIteratesInOrder(t *testing.T) {
	types := testTypes()
	ms := NewMsgStream(256, types)
	ms.SerializeMsg(MsgJoined, &JoinedMsg{PlayerID: 42, TickRate: 30})
	ms.SerializeMsg(MsgKill, &KillMsg{DamageType: DamageGas, TargetID: 7, Killed: true})
	ms.SerializeMsg(MsgDisconnect, &DisconnectMsg{Reason: "index-game-over"})

	r := NewMsgReader(ms.Bytes(), types)
	var got []MsgType
	for {
		mt, ok := r.Next()
		if !ok {
			break
		}
		got = append(got, mt)
		switch mt {
		case MsgJoined:
			var m JoinedMsg
			m.Deserialize(r.Stream())
			if m.PlayerID != 42 || m.TickRate != 30 {
				t.Fatalf("joined got=%+v", m)
			}
		case MsgKill:
			var m KillMsg
			m.Deserialize(r.Stream())
			if m.TargetID != 7 || !m.Killed || m.DamageType != DamageGas {
				t.Fatalf("kill got=%+v", m)
			}
		case MsgDisconnect:
			var m DisconnectMsg
			m.Deserialize(r.Stream())
			if m.Reason != "index-game-over" {
				t.Fatalf("disconnect got=%q", m.Reason)
			}
		}
	}
	want := []MsgType{MsgJoined, MsgKill, MsgDisconnect}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("message order mismatch (-want +got):\n%s", diff)
	}
}

func TestMsgStream_EveryMessageStartsAligned(t *testing.T) {
	ms := NewMsgStream(16, nil)
	ms.SerializeMsg(MsgResync, &ResyncMsg{})
	if ms.Len() != 1 || ms.Bytes()[0] != byte(MsgResync) {
		t.Fatalf("resync frame=%x", ms.Bytes())
	}
	ms.Stream().WriteBits(1, 3)
	ms.SerializeMsg(MsgResync, &ResyncMsg{})
	if ms.Len() != 3 || ms.Bytes()[2] != byte(MsgResync) {
		t.Fatalf("tag after partial byte should be aligned, frame=%x", ms.Bytes())
	}
}

func TestMsgStream_ResetReusesBuffer(t *testing.T) {
	ms := NewMsgStream(64, nil)
	ms.SerializeMsg(MsgJoined, &JoinedMsg{PlayerID: 1})
	ms.Reset()
	if ms.Len() != 0 {
		t.Fatalf("len after reset=%d", ms.Len())
	}
	ms.SerializeMsg(MsgJoined, &JoinedMsg{PlayerID: 2})
	r := NewMsgReader(ms.Bytes(), nil)
	mt, _ := r.Next()
	var m JoinedMsg
	m.Deserialize(r.Stream())
	if mt != MsgJoined || m.PlayerID != 2 {
		t.Fatalf("type=%s msg=%+v", mt, m)
	}
}

func TestInputMsg_RoundTrip(t *testing.T) {
	types := testTypes()
	in := NewInputMsg()
	in.Seq = 9
	in.MoveLeft = true
	in.MoveUp = true
	in.ShootHold = true
	in.Portrait = true
	in.TouchMoveActive = true
	in.TouchMoveDir = geom.V(0, 1)
	in.TouchMoveLen = 128
	in.ToMouseDir = geom.V(-1, 0)
	in.ToMouseLen = 32
	for _, c := range []uint8{3, 4, 3, 5, 6, 7, 8, 9, 10} {
		in.AddInput(c)
	}
	in.UseItem = "bandage"

	ms := NewMsgStream(64, types)
	ms.SerializeMsg(MsgInput, in)
	r := NewMsgReader(ms.Bytes(), types)
	if mt, _ := r.Next(); mt != MsgInput {
		t.Fatalf("type=%s", mt)
	}
	out := NewInputMsg()
	out.Deserialize(r.Stream())
	if err := r.Stream().Err(); err != nil {
		t.Fatalf("decode: %v", err)
	}

	approxVec := cmp.Comparer(func(a, b geom.Vec2) bool { return a.Sub(b).Length() < 0.02 })
	opts := cmp.Options{approxVec, cmpopts.EquateApprox(0, 0.2)}
	if diff := cmp.Diff(in, out, opts); diff != "" {
		t.Fatalf("input mismatch (-want +got):\n%s", diff)
	}
	if len(out.Inputs) != MaxInputs {
		t.Fatalf("inputs should be capped at %d, got=%v", MaxInputs, out.Inputs)
	}
}

func TestInputMsg_NoTouchSkipsTouchFields(t *testing.T) {
	types := testTypes()
	a := NewInputMsg()
	b := NewInputMsg()
	b.TouchMoveActive = true
	sa, sb := NewStream(32, types), NewStream(32, types)
	a.Serialize(sa)
	b.Serialize(sb)
	if sb.BitIndex()-sa.BitIndex() != 16 {
		t.Fatalf("touch fields should add 16 bits, got %d", sb.BitIndex()-sa.BitIndex())
	}
}

func TestKillMsg_RoundTrip(t *testing.T) {
	types := testTypes()
	in := &KillMsg{
		DamageType:     DamageAirstrike,
		ItemSourceType: "ak47",
		MapSourceType:  "crate_01",
		TargetID:       1000,
		KillerID:       2000,
		KillCreditID:   2000,
		KillerKills:    12,
		Downed:         true,
	}
	s := NewStream(32, types)
	in.Serialize(s)
	if s.BitIndex()%8 != 0 {
		t.Fatalf("kill msg should end aligned, bit=%d", s.BitIndex())
	}
	var out KillMsg
	out.Deserialize(NewReader(s.Bytes(), types))
	if diff := cmp.Diff(*in, out); diff != "" {
		t.Fatalf("kill mismatch (-want +got):\n%s", diff)
	}
}

func TestMapMsg_CompressedPlacesRoundTrip(t *testing.T) {
	types := testTypes()
	in := &MapMsg{Name: "main", Seed: 0xcafebabe, Width: 512, Height: 512}
	for i := 0; i < 300; i++ {
		typ := "tree_01"
		if i%3 == 0 {
			typ = "crate_01"
		}
		in.Places = append(in.Places, MapPlace{
			Type: typ,
			Pos:  geom.V(float64(i%50)*10, float64(i/50)*10),
			Ori:  uint8(i % 4),
		})
	}
	ms := NewMsgStream(1024, types)
	ms.SerializeMsg(MsgMap, in)

	r := NewMsgReader(ms.Bytes(), types)
	if mt, _ := r.Next(); mt != MsgMap {
		t.Fatalf("type=%s", mt)
	}
	var out MapMsg
	out.Deserialize(r.Stream())
	if err := r.Stream().Err(); err != nil {
		t.Fatalf("decode: %v", err)
	}
	step := MapMaxDim / float64(uint32(1)<<PosBits-1)
	if diff := cmp.Diff(in, &out, cmpopts.EquateApprox(0, step)); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestMapMsg_TruncatedBlobFails(t *testing.T) {
	types := testTypes()
	ms := NewMsgStream(256, types)
	ms.SerializeMsg(MsgMap, &MapMsg{Name: "m", Places: []MapPlace{{Type: "tree_01"}}})
	data := ms.Bytes()
	r := NewMsgReader(data[:len(data)-3], types)
	r.Next()
	var out MapMsg
	out.Deserialize(r.Stream())
	if r.Stream().Err() == nil {
		t.Fatal("expected an error for a truncated blob")
	}
}

type testSession struct {
	state  SessionState
	joined string
	inputs int
}

func newTestRegistry() *Registry {
	reg := NewRegistry(testTypes(), zap.NewNop())
	reg.Register(MsgJoin, []SessionState{StateConnected}, func(sess any, s *Stream) {
		ts := sess.(*testSession)
		var m JoinMsg
		m.Deserialize(s)
		ts.joined = m.Name
		ts.state = StateJoined
	})
	reg.Register(MsgInput, []SessionState{StateJoined}, func(sess any, s *Stream) {
		m := NewInputMsg()
		m.Deserialize(s)
		sess.(*testSession).inputs++
	})
	reg.Register(MsgResync, []SessionState{StateJoined}, func(any, *Stream) {
		panic("boom")
	})
	return reg
}

func TestRegistry_JoinThenInputInOneFrame(t *testing.T) {
	reg := newTestRegistry()
	ms := NewMsgStream(64, testTypes())
	ms.SerializeMsg(MsgJoin, &JoinMsg{Protocol: ProtocolVersion, Name: "alice"})
	ms.SerializeMsg(MsgInput, NewInputMsg())
	ms.SerializeMsg(MsgInput, NewInputMsg())

	sess := &testSession{}
	err := reg.Dispatch(sess, func() SessionState { return sess.state }, ms.Bytes())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sess.joined != "alice" || sess.inputs != 2 {
		t.Fatalf("session=%+v", sess)
	}
}

func TestRegistry_RejectsDisallowedState(t *testing.T) {
	reg := newTestRegistry()
	ms := NewMsgStream(64, testTypes())
	ms.SerializeMsg(MsgInput, NewInputMsg())

	sess := &testSession{}
	if err := reg.Dispatch(sess, func() SessionState { return sess.state }, ms.Bytes()); err == nil {
		t.Fatal("input before join should be rejected")
	}
	if sess.inputs != 0 {
		t.Fatalf("handler should not run, inputs=%d", sess.inputs)
	}
}

func TestRegistry_RecoversHandlerPanic(t *testing.T) {
	reg := newTestRegistry()
	ms := NewMsgStream(8, nil)
	ms.SerializeMsg(MsgResync, &ResyncMsg{})

	sess := &testSession{state: StateJoined}
	err := reg.Dispatch(sess, func() SessionState { return sess.state }, ms.Bytes())
	if err == nil {
		t.Fatal("expected error from panicking handler")
	}
}

func TestRegistry_UnknownTypeAndShortPayload(t *testing.T) {
	reg := newTestRegistry()
	sess := &testSession{state: StateJoined}
	state := func() SessionState { return sess.state }

	if err := reg.Dispatch(sess, state, []byte{99}); err == nil {
		t.Fatal("unknown type should fail")
	}
	sess.state = StateConnected
	err := reg.Dispatch(sess, state, []byte{byte(MsgJoin), 0x4e})
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got=%v", err)
	}
}
