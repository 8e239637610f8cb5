package event

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBus_DeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []uint16
	Subscribe(b, func(ev PlayerLeft) { got = append(got, ev.PlayerID) })

	Emit(b, PlayerLeft{PlayerID: 1})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event delivered before swap")
	}
	if b.Pending() != 1 {
		t.Fatalf("pending=%d", b.Pending())
	}

	b.SwapBuffers()
	Emit(b, PlayerLeft{PlayerID: 2}) // emitted while dispatching tick N+1
	b.DispatchAll()
	if diff := cmp.Diff([]uint16{1}, got); diff != "" {
		t.Fatalf("tick 1 (-want +got):\n%s", diff)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if diff := cmp.Diff([]uint16{1, 2}, got); diff != "" {
		t.Fatalf("tick 2 (-want +got):\n%s", diff)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 {
		t.Fatalf("event redelivered: %v", got)
	}
}

func TestBus_DispatchOrder(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(PlayerKilled) { order = append(order, "killed-a") })
	Subscribe(b, func(PlayerJoined) { order = append(order, "joined") })
	Subscribe(b, func(PlayerKilled) { order = append(order, "killed-b") })

	Emit(b, PlayerJoined{})
	Emit(b, PlayerKilled{})
	b.SwapBuffers()
	b.DispatchAll()

	want := []string{"killed-a", "killed-b", "joined"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}
