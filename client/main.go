// Demo client: creates a room, starts the session and wanders toward
// the treasure chest while printing every server push.
package main

import (
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

// 与 network/protocol.go 保持一致
const (
	msgTypeError          = 2
	msgTypeCreateRoom     = 101
	msgTypeStartGame      = 106
	msgTypeUpdatePosition = 201
	msgTypeCheckTreasure  = 203
	msgTypeRoomState      = 301
	msgTypeGameOver       = 303
)

func encode(msgID uint16, data []byte) []byte {
	packet := make([]byte, 4+len(data))
	packet[0] = byte(msgID >> 8)
	packet[1] = byte(msgID)
	packet[2] = byte(len(data) >> 8)
	packet[3] = byte(len(data))
	copy(packet[4:], data)
	return packet
}

func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, encode(msgID, data))
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	created := make(chan struct {
		RoomID string `json:"roomId"`
		HostID string `json:"hostId"`
	}, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				continue
			}
			msgID := uint16(message[0])<<8 | uint16(message[1])
			payload := message[4:]

			switch msgID {
			case msgTypeCreateRoom:
				var resp struct {
					RoomID string `json:"roomId"`
					HostID string `json:"hostId"`
				}
				if err := json.Unmarshal(payload, &resp); err == nil {
					created <- resp
				}
			case msgTypeRoomState:
				log.Printf("Room state: %s", payload)
			case msgTypeGameOver:
				log.Printf("Game over: %s", payload)
				return
			case msgTypeError:
				log.Printf("Server error: %s", payload)
			default:
				log.Printf("Message %d: %s", msgID, payload)
			}
		}
	}()

	if err := send(c, msgTypeCreateRoom, map[string]interface{}{
		"roomName":      "Demo Room",
		"maxPlayers":    4,
		"hostName":      "Demo",
		"hostCharacter": "knight",
	}); err != nil {
		log.Fatalf("Create room failed: %v", err)
	}

	var room struct {
		RoomID string `json:"roomId"`
		HostID string `json:"hostId"`
	}
	select {
	case room = <-created:
		log.Printf("Created room %s as player %s", room.RoomID, room.HostID)
	case <-time.After(5 * time.Second):
		log.Fatal("Timed out waiting for room creation")
	}

	if err := send(c, msgTypeStartGame, map[string]string{
		"roomId":      room.RoomID,
		"requesterId": room.HostID,
	}); err != nil {
		log.Fatalf("Start game failed: %v", err)
	}

	// 朝宝箱 (600, 50) 走过去，边走边检查夺宝
	x, y := 150.0, 100.0
	for i := 0; i < 20; i++ {
		select {
		case <-interrupt:
			return
		case <-done:
			return
		case <-time.After(500 * time.Millisecond):
		}

		x += (600 - x) * 0.3
		y += (50 - y) * 0.3
		if err := send(c, msgTypeUpdatePosition, map[string]interface{}{
			"roomId":    room.RoomID,
			"playerId":  room.HostID,
			"x":         x,
			"y":         y,
			"direction": "right",
			"isMoving":  true,
			"isJumping": false,
		}); err != nil {
			log.Fatalf("Update position failed: %v", err)
		}

		if err := send(c, msgTypeCheckTreasure, map[string]string{
			"roomId":   room.RoomID,
			"playerId": room.HostID,
		}); err != nil {
			log.Fatalf("Check treasure failed: %v", err)
		}
	}

	<-done
}
