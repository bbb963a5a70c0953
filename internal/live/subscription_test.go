package live

import (
	"testing"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
)

func TestSubscription_SwitchCancelsPreviousFirst(t *testing.T) {
	var events []string
	open := func(owner string) interfaces.CancelFunc {
		events = append(events, "open:"+owner)
		return func() { events = append(events, "cancel:"+owner) }
	}

	sub := NewSubscription(open)
	sub.Switch("c1")
	sub.Switch("c2")
	sub.Close()

	want := []string{"open:c1", "cancel:c1", "open:c2", "cancel:c2"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestSubscription_SameOwnerKeepsHandle(t *testing.T) {
	opens := 0
	sub := NewSubscription(func(string) interfaces.CancelFunc {
		opens++
		return func() {}
	})

	sub.Switch("c1")
	sub.Switch("c1")
	if opens != 1 {
		t.Errorf("expected 1 open, got %d", opens)
	}
}

func TestSubscription_CloseIdempotent(t *testing.T) {
	cancels := 0
	sub := NewSubscription(func(string) interfaces.CancelFunc {
		return func() { cancels++ }
	})

	sub.Switch("c1")
	sub.Close()
	sub.Close()
	if cancels != 1 {
		t.Errorf("expected 1 cancel, got %d", cancels)
	}

}

func TestSubscription_SwitchAfterCloseOpensNothing(t *testing.T) {
	opens := 0
	sub := NewSubscription(func(string) interfaces.CancelFunc {
		opens++
		return func() {}
	})

	sub.Close()
	sub.Switch("c1")
	sub.Switch("c2")
	if opens != 0 {
		t.Errorf("expected no opens after Close, got %d", opens)
	}
}
