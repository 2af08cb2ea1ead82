// room/manager.go
package room

import (
	"sync"

	"github.com/wfunc/treasurehunt/ident"
	"github.com/wfunc/treasurehunt/session"
)

// Settings 会话调优参数，来自配置
type Settings struct {
	TimeLimit      int     // 倒计时秒数，<=0 取默认值
	TreasureRadius float64 // 夺宝判定半径，<=0 取默认值
}

// Manager is the sole owner of Room instances. Its mutex guards only
// the registry key space; every room serializes its own state under
// its own guard, so operations on different rooms never contend.
type Manager struct {
	rooms    map[string]*Room
	mu       sync.RWMutex
	settings Settings
}

// NewManager 创建房间注册表
func NewManager(settings Settings) *Manager {
	return &Manager{
		rooms:    make(map[string]*Room),
		settings: settings,
	}
}

// CreateRoom allocates a room with a fresh unique code and the creator
// installed as host. Codes are retried on collision; with a 36^6 space
// a retry should never be observed in practice.
func (m *Manager) CreateRoom(name string, maxPlayers int, hostName, hostCharacter string) (*Room, *Player, error) {
	if maxPlayers < 2 || maxPlayers > 6 {
		return nil, nil, ErrInvalidMaxPlayers
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code := ident.NewRoomCode()
	for m.rooms[code] != nil {
		code = ident.NewRoomCode()
	}

	r, host := newRoom(code, name, maxPlayers, hostName, hostCharacter)
	m.rooms[code] = r
	return r, host, nil
}

// GetRoom 查找房间；不存在不是错误，返回 (nil, false)
func (m *Manager) GetRoom(roomID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, exists := m.rooms[roomID]
	return r, exists
}

// RemoveRoom drops the room from the registry.
func (m *Manager) RemoveRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// --- 生命周期操作 ---

// JoinRoom appends a new player to the lobby.
func (m *Manager) JoinRoom(roomID, name, character string) (*Player, error) {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return nil, ErrRoomNotFound
	}
	return r.AddPlayer(name, character)
}

// LeaveRoom removes the player if present; an absent player is a
// no-op. A room whose last player leaves is destroyed together with
// any session it holds.
func (m *Manager) LeaveRoom(roomID, playerID string) bool {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return false
	}

	removed, empty := r.RemovePlayer(playerID)
	if empty {
		m.RemoveRoom(roomID)
	}
	return removed
}

// UpdateCharacter changes a player's cosmetic character.
func (m *Manager) UpdateCharacter(roomID, playerID, character string) error {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	return r.UpdateCharacter(playerID, character)
}

// StartGame starts the session if the requester is the host.
func (m *Manager) StartGame(roomID, requesterID string) error {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	return r.Start(requesterID, m.settings.TimeLimit, m.settings.TreasureRadius)
}

// --- 会话引擎操作 ---

// UpdatePosition overwrites a session player's live fields.
func (m *Manager) UpdatePosition(roomID, playerID string, x, y float64, direction session.Direction, isMoving, isJumping bool) error {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	return r.UpdatePosition(playerID, x, y, direction, isMoving, isJumping)
}

// CollectCoin attempts an at-most-once coin award.
func (m *Manager) CollectCoin(roomID, coinID, playerID string) (bool, error) {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return false, ErrRoomNotFound
	}
	return r.CollectCoin(coinID, playerID)
}

// CheckTreasureWin tests a player against the treasure chest.
func (m *Manager) CheckTreasureWin(roomID, playerID string) (bool, error) {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return false, ErrRoomNotFound
	}
	return r.CheckTreasureWin(playerID)
}

// Tick advances a room's countdown by one second.
func (m *Manager) Tick(roomID string) (int, error) {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return 0, ErrRoomNotFound
	}
	return r.Tick()
}

// Snapshot returns a detached copy of the room, or nil if absent.
func (m *Manager) Snapshot(roomID string) *Snapshot {
	r, exists := m.GetRoom(roomID)
	if !exists {
		return nil
	}
	return r.Snapshot()
}
