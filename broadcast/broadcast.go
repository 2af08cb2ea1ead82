// broadcast/broadcast.go
package broadcast

import (
	"sync"

	"github.com/wfunc/treasurehunt/network"
)

// Broadcaster pushes a payload to every connection watching a room.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte)
}

// Hub 维护 roomID -> playerID -> 连接 的注册表。
// 房间状态变更后由服务端调用，把最新快照推给房间里的所有连接；
// 发送失败的连接跳过，由读循环负责最终清理。
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]network.Connection
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[string]network.Connection),
	}
}

// Register binds a player's connection to a room.
func (h *Hub) Register(roomID, playerID string, conn network.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]network.Connection)
	}
	h.rooms[roomID][playerID] = conn
}

// Unregister removes a player's connection; the room entry is dropped
// when its last connection goes away.
func (h *Hub) Unregister(roomID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, exists := h.rooms[roomID]
	if !exists {
		return
	}
	delete(conns, playerID)
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}

// DropRoom removes every connection registered to a room.
func (h *Hub) DropRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}

// Listeners returns the number of connections watching a room.
func (h *Hub) Listeners(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) BroadcastToRoom(roomID string, msgID uint16, data []byte) {
	h.mu.RLock()
	conns := make([]network.Connection, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(msgID, data); err != nil {
			continue
		}
	}
}
