package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := New(zaptest.NewLogger(t))
	defer bus.Close()

	got := make(chan DomainEvent, 1)
	bus.Subscribe(EventBackendReady, func(e DomainEvent) { got <- e })

	bus.Publish(BackendReadyEvent{PID: 42})

	select {
	case e := <-got:
		ready, ok := e.(BackendReadyEvent)
		require.True(t, ok, "expected BackendReadyEvent, got %T", e)
		require.Equal(t, 42, ready.PID)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventsAreDeliveredInOrder(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	got := make(chan string, 3)
	bus.Subscribe(EventBackendOutput, func(e DomainEvent) {
		got <- e.(BackendOutputEvent).Line
	})

	for _, line := range []string{"one", "two", "three"} {
		bus.Publish(BackendOutputEvent{Stream: "stdout", Line: line})
	}

	var lines []string
	for i := 0; i < 3; i++ {
		select {
		case l := <-got:
			lines = append(lines, l)
		case <-time.After(time.Second):
			t.Fatalf("only received %v", lines)
		}
	}
	require.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	first := make(chan struct{}, 4)
	second := make(chan struct{}, 4)
	unsubscribe := bus.Subscribe(EventPanelDisposed, func(DomainEvent) { first <- struct{}{} })
	bus.Subscribe(EventPanelDisposed, func(DomainEvent) { second <- struct{}{} })

	unsubscribe()
	bus.Publish(PanelDisposedEvent{PanelID: "p1"})

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber was not called")
	}
	require.Len(t, first, 0, "unsubscribed handler should not run")
}

func TestHandlerPanicDoesNotStopDispatcher(t *testing.T) {
	bus := New(zaptest.NewLogger(t))
	defer bus.Close()

	got := make(chan struct{}, 1)
	bus.Subscribe(EventBackendFailed, func(DomainEvent) { panic("boom") })
	bus.Subscribe(EventBackendFailed, func(DomainEvent) { got <- struct{}{} })

	bus.Publish(BackendFailedEvent{})

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("second handler did not run after panic")
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := New(nil)
	bus.Close()
	bus.Close()

	require.NotPanics(t, func() {
		bus.Publish(PanelOpenedEvent{PanelID: "p1"})
	})
}
