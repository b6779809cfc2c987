// internal/broadcast/fabric_test.go
package broadcast

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aliasgame/server/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testFabric() *Fabric {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewFabric(log)
}

func TestPublishOrderPreserved(t *testing.T) {
	f := testFabric()
	sub := f.SubscribeRoom("ABC123")
	defer sub.Close()

	for i := 0; i < 10; i++ {
		f.PublishRoom("ABC123", protocol.Error(fmt.Sprintf("m%d", i)))
	}
	for i := 0; i < 10; i++ {
		msg := <-sub.C
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Message)
	}
}

func TestRoomChannelsAreIsolated(t *testing.T) {
	f := testFabric()
	a := f.SubscribeRoom("AAAAAA")
	b := f.SubscribeRoom("BBBBBB")
	defer a.Close()
	defer b.Close()

	f.PublishRoom("AAAAAA", protocol.Pong())

	assert.Len(t, a.C, 1)
	assert.Len(t, b.C, 0)
}

func TestSlowSubscriberIsDroppedNotBlocked(t *testing.T) {
	f := testFabric()
	slow := f.SubscribeRoom("ROOM01")
	fast := f.SubscribeRoom("ROOM01")
	defer fast.Close()

	// Fill the slow subscriber's buffer, then overflow it. The publisher
	// never blocks and the fast subscriber keeps receiving.
	for i := 0; i < SubscriberBuffer+1; i++ {
		f.PublishRoom("ROOM01", protocol.Pong())
		// Drain fast so only slow overflows.
		<-fast.C
	}

	// slow got the first SubscriberBuffer envelopes, then its channel closed.
	for i := 0; i < SubscriberBuffer; i++ {
		_, ok := <-slow.C
		require.True(t, ok)
	}
	_, ok := <-slow.C
	assert.False(t, ok, "overflowed subscriber channel must be closed")

	// Publishing still reaches the surviving subscriber.
	f.PublishRoom("ROOM01", protocol.Pong())
	assert.Len(t, fast.C, 1)
	slow.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	f := testFabric()
	sub := f.SubscribeLobby()
	sub.Close()
	sub.Close()

	var nilSub *Subscription
	nilSub.Close()
}

func TestRemoveRoomClosesSubscribers(t *testing.T) {
	f := testFabric()
	sub := f.SubscribeRoom("GONE01")
	f.RemoveRoom("GONE01")

	_, ok := <-sub.C
	assert.False(t, ok)

	// Publishing to a removed room recreates the channel without panicking.
	f.PublishRoom("GONE01", protocol.Pong())
}

func TestLobbyFanout(t *testing.T) {
	f := testFabric()
	a := f.SubscribeLobby()
	b := f.SubscribeLobby()
	defer a.Close()
	defer b.Close()

	f.PublishLobby(protocol.RoomDeleted("XYZ789"))

	ma := <-a.C
	mb := <-b.C
	assert.Equal(t, protocol.TypeRoomDeleted, ma.Type)
	assert.Equal(t, "XYZ789", mb.RoomCode)
}
