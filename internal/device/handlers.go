package device

// Handler receives one device event. Handlers run on the session goroutine
// and must not block.
type Handler func(ev Event)

// Registrar is the registration half of a device's callback registry.
type Registrar interface {
	RegisterHandler(t EventType, h Handler)
}

// Handlers is a callback registry with one slot per event type. Drivers
// embed it to satisfy the registration and dispatch parts of Device.
//
// Handlers is not safe for concurrent use: registration happens before the
// event loop starts and dispatch happens on the loop goroutine.
type Handlers struct {
	table [numEventTypes]Handler
}

// RegisterHandler installs h for t, replacing any previous handler.
// Invalid event types are ignored. A nil h clears the slot.
func (hs *Handlers) RegisterHandler(t EventType, h Handler) {
	if !t.Valid() {
		return
	}
	hs.table[t] = h
}

// Dispatch invokes the handler registered for ev.Type, if any, and reports
// whether one ran.
func (hs *Handlers) Dispatch(ev Event) bool {
	if !ev.Type.Valid() {
		return false
	}
	h := hs.table[ev.Type]
	if h == nil {
		return false
	}
	h(ev)
	return true
}
