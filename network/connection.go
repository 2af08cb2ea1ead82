// network/connection.go
package network

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// Packet 一条完整的消息：2字节消息ID + 2字节长度 + JSON负载
type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

// Connection is the transport seen by the server: framed send/receive
// over some underlying socket.
type Connection interface {
	Send(msgID uint16, data []byte) error
	ReadPacket() (*Packet, error)
	RemoteAddr() net.Addr
	Close() error
}

// WSConnection frames packets over a gorilla websocket.
type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// Encode 封包；客户端与服务端共用同一帧格式
func Encode(msgID uint16, data []byte) []byte {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)
	return packet
}

// Decode 拆包；帧不完整返回 io.ErrShortBuffer
func Decode(raw []byte) (*Packet, error) {
	if len(raw) < 4 {
		return nil, io.ErrShortBuffer
	}

	msgID := binary.BigEndian.Uint16(raw[0:2])
	length := binary.BigEndian.Uint16(raw[2:4])
	if len(raw) < int(4+length) {
		return nil, io.ErrShortBuffer
	}

	return &Packet{
		MsgID:  msgID,
		Length: length,
		Data:   raw[4 : 4+length],
	}, nil
}

func (c *WSConnection) Send(msgID uint16, data []byte) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, Encode(msgID, data))
}

func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}
