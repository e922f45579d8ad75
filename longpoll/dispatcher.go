package longpoll

import "sync"

// Dispatcher routes subscription events to registered callbacks.
type Dispatcher struct {
	mu        sync.RWMutex
	onMessage func(Message)
	onState   func(StateEvent)
	onError   func(error)
}

func (d *Dispatcher) SetOnMessage(fn func(Message)) {
	d.mu.Lock()
	d.onMessage = fn
	d.mu.Unlock()
}

func (d *Dispatcher) SetOnStateChanged(fn func(StateEvent)) {
	d.mu.Lock()
	d.onState = fn
	d.mu.Unlock()
}

func (d *Dispatcher) SetOnError(fn func(error)) {
	d.mu.Lock()
	d.onError = fn
	d.mu.Unlock()
}

// DispatchMessage fires the message callback for a newly merged message.
func (d *Dispatcher) DispatchMessage(m Message) {
	d.mu.RLock()
	fn := d.onMessage
	d.mu.RUnlock()
	if fn != nil {
		fn(m)
	}
}

// DispatchState fires the state callback.
func (d *Dispatcher) DispatchState(ev StateEvent) {
	d.mu.RLock()
	fn := d.onState
	d.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// DispatchError fires the error callback for a non-nil err.
func (d *Dispatcher) DispatchError(err error) {
	if err == nil {
		return
	}
	d.mu.RLock()
	fn := d.onError
	d.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}
