package follower

import "github.com/cwtail/cwtail/event"

// Observer receives the side effects of a follow operation. Callbacks are
// the only channel through which per-stream failures surface: Run returns
// normally even when individual streams are abandoned, so a caller that
// ignores OnError can observe a "successful" operation that silently lost
// a stream. Inspect the returned StreamResults or implement OnError.
//
// OnEvent may be invoked concurrently for different streams; events within
// one stream arrive in non-decreasing timestamp order, but no ordering
// holds across streams.
type Observer interface {
	// OnEvent is called once per well-formed log event.
	OnEvent(ev event.Event, stream string)
	// OnStreamConnect is called when a stream's follow loop starts.
	OnStreamConnect(stream string)
	// OnStreamDisconnect is called after every failed poll, before any
	// reconnect decision is made.
	OnStreamDisconnect(stream string, reason error)
	// OnReconnect is called before the backoff sleep of retry number attempt.
	OnReconnect(stream string, attempt int)
	// OnError is called when a stream is abandoned permanently. Sibling
	// streams are unaffected.
	OnError(err error, stream string)
	// OnClose is called exactly once, after every stream has settled.
	OnClose()
}

// Callbacks adapts a bag of optional functions to the Observer interface.
// Nil members are simply skipped.
type Callbacks struct {
	Event      func(ev event.Event, stream string)
	Connect    func(stream string)
	Disconnect func(stream string, reason error)
	Reconnect  func(stream string, attempt int)
	Error      func(err error, stream string)
	Close      func()
}

var _ Observer = (*Callbacks)(nil)

func (c *Callbacks) OnEvent(ev event.Event, stream string) {
	if c.Event != nil {
		c.Event(ev, stream)
	}
}

func (c *Callbacks) OnStreamConnect(stream string) {
	if c.Connect != nil {
		c.Connect(stream)
	}
}

func (c *Callbacks) OnStreamDisconnect(stream string, reason error) {
	if c.Disconnect != nil {
		c.Disconnect(stream, reason)
	}
}

func (c *Callbacks) OnReconnect(stream string, attempt int) {
	if c.Reconnect != nil {
		c.Reconnect(stream, attempt)
	}
}

func (c *Callbacks) OnError(err error, stream string) {
	if c.Error != nil {
		c.Error(err, stream)
	}
}

func (c *Callbacks) OnClose() {
	if c.Close != nil {
		c.Close()
	}
}
