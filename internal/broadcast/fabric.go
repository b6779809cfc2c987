// internal/broadcast/fabric.go
package broadcast

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/aliasgame/server/internal/protocol"
)

// SubscriberBuffer is how many envelopes a subscriber may fall behind before
// it is dropped from the channel.
const SubscriberBuffer = 100

// Subscription is a lightweight handle onto one fan-out channel. Receive
// envelopes from C; a closed C means the subscriber overflowed or the channel
// was torn down, and the owner should re-subscribe when it next needs state.
type Subscription struct {
	C chan protocol.Message

	ch   *channel
	once sync.Once
}

// Close detaches the subscription. Safe to call more than once and safe
// against a concurrent drop by the publisher.
func (s *Subscription) Close() {
	if s == nil || s.ch == nil {
		return
	}
	s.ch.unsubscribe(s)
}

// channel is one fan-out point: the lobby or a single room.
type channel struct {
	mu   sync.Mutex
	subs map[*Subscription]bool
}

func newChannel() *channel {
	return &channel{subs: make(map[*Subscription]bool)}
}

func (c *channel) subscribe() *Subscription {
	s := &Subscription{C: make(chan protocol.Message, SubscriberBuffer), ch: c}
	c.mu.Lock()
	c.subs[s] = true
	c.mu.Unlock()
	return s
}

func (c *channel) unsubscribe(s *Subscription) {
	c.mu.Lock()
	if c.subs[s] {
		delete(c.subs, s)
		s.once.Do(func() { close(s.C) })
	}
	c.mu.Unlock()
}

// publish delivers msg to every subscriber without blocking. A subscriber
// whose buffer is full is dropped from the channel; its connection stays up
// and re-subscribes on its next join or room-list request.
func (c *channel) publish(msg protocol.Message) (delivered, dropped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.subs {
		select {
		case s.C <- msg:
			delivered++
		default:
			delete(c.subs, s)
			s.once.Do(func() { close(s.C) })
			dropped++
		}
	}
	return delivered, dropped
}

func (c *channel) closeAll() {
	c.mu.Lock()
	for s := range c.subs {
		delete(c.subs, s)
		s.once.Do(func() { close(s.C) })
	}
	c.mu.Unlock()
}

// Fabric owns the lobby channel and the per-room channels. Room channels are
// created lazily on first subscription or publish.
type Fabric struct {
	mu    sync.Mutex
	rooms map[string]*channel
	lobby *channel
	log   *logrus.Logger
}

func NewFabric(log *logrus.Logger) *Fabric {
	return &Fabric{
		rooms: make(map[string]*channel),
		lobby: newChannel(),
		log:   log,
	}
}

func (f *Fabric) room(code string) *channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.rooms[code]
	if !ok {
		ch = newChannel()
		f.rooms[code] = ch
	}
	return ch
}

// SubscribeRoom attaches a new subscription to the room channel.
func (f *Fabric) SubscribeRoom(code string) *Subscription {
	return f.room(code).subscribe()
}

// SubscribeLobby attaches a new subscription to the global lobby channel.
func (f *Fabric) SubscribeLobby() *Subscription {
	return f.lobby.subscribe()
}

// PublishRoom fans msg out to the room's subscribers, non-blocking and lossy.
func (f *Fabric) PublishRoom(code string, msg protocol.Message) {
	delivered, dropped := f.room(code).publish(msg)
	if dropped > 0 {
		f.log.WithFields(logrus.Fields{
			"room":      code,
			"type":      msg.Type,
			"delivered": delivered,
			"dropped":   dropped,
		}).Warn("Dropped slow room subscribers")
	}
}

// PublishLobby fans msg out to every lobby subscriber.
func (f *Fabric) PublishLobby(msg protocol.Message) {
	_, dropped := f.lobby.publish(msg)
	if dropped > 0 {
		f.log.WithFields(logrus.Fields{
			"type":    msg.Type,
			"dropped": dropped,
		}).Warn("Dropped slow lobby subscribers")
	}
}

// RemoveRoom tears down a room channel, closing the remaining subscriptions.
func (f *Fabric) RemoveRoom(code string) {
	f.mu.Lock()
	ch, ok := f.rooms[code]
	delete(f.rooms, code)
	f.mu.Unlock()
	if ok {
		ch.closeAll()
	}
}
