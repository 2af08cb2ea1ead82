// room/room.go
package room

import (
	"sync"
	"time"

	"github.com/wfunc/treasurehunt/ident"
	"github.com/wfunc/treasurehunt/session"
)

// Player 大厅里的参与者
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsHost    bool   `json:"isHost"`
	Character string `json:"character"`
}

// Room 是游戏房间的核心结构：大厅字段加上开局后的会话。
// mu 串行化对房间全部可变状态的访问，包括会话；不同房间互不争锁。
type Room struct {
	ID         string
	Name       string
	MaxPlayers int
	CreatedAt  time.Time

	mu      sync.Mutex
	hostID  string
	players []*Player // 加入顺序即 slice 顺序
	started bool
	session *session.Session
}

func newRoom(id, name string, maxPlayers int, hostName, hostCharacter string) (*Room, *Player) {
	host := &Player{
		ID:        ident.NewPlayerID(),
		Name:      hostName,
		IsHost:    true,
		Character: hostCharacter,
	}
	r := &Room{
		ID:         id,
		Name:       name,
		MaxPlayers: maxPlayers,
		CreatedAt:  time.Now(),
		hostID:     host.ID,
		players:    []*Player{host},
	}
	return r, host
}

// HostID returns the current host's identifier.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// Started reports whether the game session has begun.
func (r *Room) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// PlayerCount returns the number of lobby players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) findPlayer(playerID string) *Player {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// AddPlayer 加入一名新玩家；只在大厅阶段且未满员时合法
func (r *Room) AddPlayer(name, character string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil, ErrGameAlreadyStarted
	}
	if len(r.players) >= r.MaxPlayers {
		return nil, ErrRoomFull
	}

	player := &Player{
		ID:        ident.NewPlayerID(),
		Name:      name,
		IsHost:    false,
		Character: character,
	}
	r.players = append(r.players, player)
	return player, nil
}

// RemovePlayer 移除玩家。若移除的是房主且还有人留下，按加入顺序把最早的
// 剩余玩家提升为新房主。返回 (removed, empty)：empty 为 true 时房间应当
// 被注册表销毁。
func (r *Room) RemovePlayer(playerID string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, len(r.players) == 0
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if len(r.players) == 0 {
		return true, true
	}

	if playerID == r.hostID {
		newHost := r.players[0]
		newHost.IsHost = true
		r.hostID = newHost.ID
	}
	return true, false
}

// UpdateCharacter 更换角色皮肤，房间任何阶段都合法
func (r *Room) UpdateCharacter(playerID, character string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.findPlayer(playerID)
	if player == nil {
		return session.ErrPlayerNotFound
	}
	player.Character = character

	// 开局后的会话玩家也同步换装
	if r.session != nil {
		_ = r.session.UpdateCharacter(playerID, character)
	}
	return nil
}

// Start transitions the room into the started state and builds the
// session from a snapshot of the current lobby players. It is
// single-shot on purpose: a second start would throw away in-progress
// world state, so it fails with ErrGameAlreadyStarted instead.
func (r *Room) Start(requesterID string, timeLimit int, treasureRadius float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.hostID {
		return ErrNotHost
	}
	if r.started {
		return ErrGameAlreadyStarted
	}

	seeds := make([]session.Seed, 0, len(r.players))
	for _, p := range r.players {
		seeds = append(seeds, session.Seed{
			ID:        p.ID,
			Name:      p.Name,
			IsHost:    p.IsHost,
			Character: p.Character,
		})
	}

	r.session = session.New(seeds, timeLimit, treasureRadius)
	r.started = true
	return nil
}

// --- 会话操作：在房间锁内委托给 session ---

// UpdatePosition forwards a position overwrite to the session.
func (r *Room) UpdatePosition(playerID string, x, y float64, direction session.Direction, isMoving, isJumping bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoActiveSession
	}
	return r.session.UpdatePosition(playerID, x, y, direction, isMoving, isJumping)
}

// CollectCoin attempts to award a coin to the named player.
func (r *Room) CollectCoin(coinID, playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return false, ErrNoActiveSession
	}
	return r.session.CollectCoin(coinID, playerID), nil
}

// CheckTreasureWin tests the named player against the treasure chest.
func (r *Room) CheckTreasureWin(playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return false, ErrNoActiveSession
	}
	return r.session.CheckTreasureWin(playerID)
}

// Tick advances the session countdown by one second.
func (r *Room) Tick() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return 0, ErrNoActiveSession
	}
	return r.session.Tick(), nil
}

// Terminal reports whether the room's session has reached won or lost.
func (r *Room) Terminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil && r.session.Phase().Terminal()
}

// Snapshot 房间状态的深拷贝，用于对外序列化
type Snapshot struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	MaxPlayers  int               `json:"maxPlayers"`
	HostID      string            `json:"hostId"`
	Players     []Player          `json:"players"`
	GameStarted bool              `json:"gameStarted"`
	GameState   *session.Snapshot `json:"gameState,omitempty"`
}

// Snapshot copies the room and, if started, its session.
func (r *Room) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, *p)
	}

	snap := &Snapshot{
		ID:          r.ID,
		Name:        r.Name,
		MaxPlayers:  r.MaxPlayers,
		HostID:      r.hostID,
		Players:     players,
		GameStarted: r.started,
	}
	if r.session != nil {
		snap.GameState = r.session.Snapshot()
	}
	return snap
}
