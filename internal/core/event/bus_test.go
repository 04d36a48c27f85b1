package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus_NextFrameDelivery(t *testing.T) {
	b := NewBus()
	var got []Event
	b.Subscribe("hit", 1, func(e Event) { got = append(got, e) })

	b.Emit(Event{Name: "hit", Source: 2, Payload: 10.0})
	require.Zero(t, b.DispatchAll(), "not readable in the emitting frame")
	require.Equal(t, 1, b.Pending())

	b.SwapBuffers()
	require.Equal(t, 1, b.DispatchAll())
	require.Len(t, got, 1)
	require.Equal(t, 10.0, got[0].Payload)

	b.SwapBuffers()
	require.Zero(t, b.DispatchAll())
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	id := b.Subscribe("a", 1, func(Event) { calls++ })
	b.Subscribe("a", 2, func(Event) { calls++ })
	b.Subscribe("b", 2, func(Event) { calls++ })

	require.True(t, b.Unsubscribe(id))
	require.False(t, b.Unsubscribe(id))
	require.Equal(t, 1, b.UnsubscribeOwner(2, "b"))

	b.Emit(Event{Name: "a"})
	b.Emit(Event{Name: "b"})
	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, 1, calls)

	require.Equal(t, 1, b.UnsubscribeOwner(2, ""))
}

func TestBus_EmitDuringDispatch(t *testing.T) {
	b := NewBus()
	b.Subscribe("ping", 0, func(e Event) { b.Emit(Event{Name: "pong"}) })
	pongs := 0
	b.Subscribe("pong", 0, func(Event) { pongs++ })

	b.Emit(Event{Name: "ping"})
	b.SwapBuffers()
	b.DispatchAll()
	require.Zero(t, pongs)
	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, 1, pongs)
}
