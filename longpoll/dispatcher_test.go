package longpoll

import (
	"errors"
	"testing"
)

func TestDispatcherMessage(t *testing.T) {
	var got Message
	var d Dispatcher
	d.SetOnMessage(func(m Message) { got = m })

	d.DispatchMessage(Message{ID: 3, Text: "hi"})
	if got.ID != 3 || got.Text != "hi" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestDispatcherError(t *testing.T) {
	var errGot error
	calls := 0
	var d Dispatcher
	d.SetOnError(func(err error) { errGot = err; calls++ })

	d.DispatchError(nil)
	if calls != 0 {
		t.Fatalf("nil error must not reach the callback")
	}
	d.DispatchError(errors.New("boom"))
	if errGot == nil || calls != 1 {
		t.Fatalf("expected error callback")
	}
}

func TestDispatcherUnsetCallbacks(t *testing.T) {
	var d Dispatcher
	d.DispatchMessage(Message{ID: 1})
	d.DispatchState(StateEvent{OldState: StateIdle, NewState: StatePolling})
	d.DispatchError(errors.New("ignored"))
}
