package broadcast

import (
	"net"
	"testing"

	"github.com/wfunc/treasurehunt/network"
)

// recordingConn captures every packet sent through it.
type recordingConn struct {
	sent []uint16
}

func (c *recordingConn) Send(msgID uint16, data []byte) error {
	c.sent = append(c.sent, msgID)
	return nil
}
func (c *recordingConn) ReadPacket() (*network.Packet, error) { return nil, nil }
func (c *recordingConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *recordingConn) Close() error                         { return nil }

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := NewHub()

	c1 := &recordingConn{}
	c2 := &recordingConn{}
	other := &recordingConn{}

	hub.Register("ROOM01", "p1", c1)
	hub.Register("ROOM01", "p2", c2)
	hub.Register("ROOM02", "p3", other)

	hub.BroadcastToRoom("ROOM01", network.MsgTypeRoomState, []byte(`{}`))

	if len(c1.sent) != 1 || len(c2.sent) != 1 {
		t.Fatalf("Both room members should receive the broadcast, got %d/%d", len(c1.sent), len(c2.sent))
	}
	if len(other.sent) != 0 {
		t.Fatal("Connections in other rooms must not receive the broadcast")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	c := &recordingConn{}

	hub.Register("ROOM01", "p1", c)
	hub.Unregister("ROOM01", "p1")

	if hub.Listeners("ROOM01") != 0 {
		t.Fatal("Room should have no listeners after unregister")
	}

	hub.BroadcastToRoom("ROOM01", network.MsgTypeRoomState, nil)
	if len(c.sent) != 0 {
		t.Fatal("Unregistered connection must not receive broadcasts")
	}
}

func TestHub_DropRoom(t *testing.T) {
	hub := NewHub()
	hub.Register("ROOM01", "p1", &recordingConn{})
	hub.Register("ROOM01", "p2", &recordingConn{})

	hub.DropRoom("ROOM01")
	if hub.Listeners("ROOM01") != 0 {
		t.Fatal("DropRoom should remove every listener")
	}
}
