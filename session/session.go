// session/session.go
package session

import (
	"errors"
	"math"

	"github.com/wfunc/treasurehunt/state"
)

// ErrPlayerNotFound is returned when a player id is not part of the session or room.
var ErrPlayerNotFound = errors.New("player not found")

// 默认会话参数，可通过配置覆盖
const (
	DefaultTimeLimit      = 120  // 倒计时总秒数
	DefaultTreasureRadius = 50.0 // 夺宝判定距离（严格小于）
)

// Direction 玩家朝向
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ValidDirection reports whether d is one of the two legal facings.
func ValidDirection(d Direction) bool {
	return d == DirectionLeft || d == DirectionRight
}

// Player 是会话内的玩家：大厅信息加上实时位置状态
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsHost    bool      `json:"isHost"`
	Character string    `json:"character"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Coins     int       `json:"coins"`
	Direction Direction `json:"direction"`
	IsMoving  bool      `json:"isMoving"`
	IsJumping bool      `json:"isJumping"`
}

// Coin 地图上的金币；collected 只会从 false 翻到 true 一次
type Coin struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Collected bool    `json:"collected"`
}

// Platform 静态平台，会话创建后只读
type Platform struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Treasure 宝箱位置
type Treasure struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Seed 是创建会话时从大厅玩家快照出来的输入
type Seed struct {
	ID        string
	Name      string
	IsHost    bool
	Character string
}

// Session holds the authoritative world state of one started room.
// It performs no locking itself; the owning room serializes all access
// under its per-room guard.
type Session struct {
	players        []*Player
	coins          []*Coin
	platforms      []Platform
	treasure       Treasure
	timeLeft       int
	treasureRadius float64
	machine        *state.Machine
}

// 固定关卡布局
var defaultPlatforms = []Platform{
	{ID: "platform1", X: 100, Y: 0, Width: 150, Height: 25},
	{ID: "platform2", X: 300, Y: 0, Width: 150, Height: 25},
	{ID: "platform3", X: 500, Y: 0, Width: 150, Height: 25},
	{ID: "platform4", X: 950, Y: 0, Width: 150, Height: 25},
	{ID: "platform5", X: 950, Y: 100, Width: 150, Height: 25},
	{ID: "platform6", X: 950, Y: 200, Width: 150, Height: 25},
}

var defaultCoins = []Coin{
	{ID: "coin1", X: 150, Y: 50},
	{ID: "coin2", X: 300, Y: 50},
	{ID: "coin3", X: 1000, Y: 50},
	{ID: "coin4", X: 1000, Y: 150},
	{ID: "coin5", X: 1000, Y: 250},
}

var defaultTreasure = Treasure{X: 600, Y: 50}

// 出生点：玩家按加入顺序横向错开，共用同一条基线
const (
	spawnBaseX    = 150.0
	spawnSpacingX = 120.0
	spawnY        = 100.0
)

// New builds a session from a snapshot of the lobby players.
// Every player spawns at a distinct x, facing right, stationary,
// with zero coins.
func New(seeds []Seed, timeLimit int, treasureRadius float64) *Session {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	if treasureRadius <= 0 {
		treasureRadius = DefaultTreasureRadius
	}

	players := make([]*Player, 0, len(seeds))
	for i, seed := range seeds {
		players = append(players, &Player{
			ID:        seed.ID,
			Name:      seed.Name,
			IsHost:    seed.IsHost,
			Character: seed.Character,
			X:         spawnBaseX + float64(i)*spawnSpacingX,
			Y:         spawnY,
			Coins:     0,
			Direction: DirectionRight,
			IsMoving:  false,
			IsJumping: false,
		})
	}

	coins := make([]*Coin, 0, len(defaultCoins))
	for _, c := range defaultCoins {
		coin := c
		coins = append(coins, &coin)
	}

	machine := state.NewMachine()
	// 会话一经创建即进入 active；lobby 阶段只存在于未开始的房间
	_ = machine.Transition(state.PhaseActive)

	return &Session{
		players:        players,
		coins:          coins,
		platforms:      defaultPlatforms,
		treasure:       defaultTreasure,
		timeLeft:       timeLimit,
		treasureRadius: treasureRadius,
		machine:        machine,
	}
}

// Phase returns the current session phase.
func (s *Session) Phase() state.Phase {
	return s.machine.Current()
}

// Won reports whether the session ended with the treasure reached.
func (s *Session) Won() bool {
	return s.machine.Current() == state.PhaseWon
}

// Lost reports whether the session ended with the countdown expired.
func (s *Session) Lost() bool {
	return s.machine.Current() == state.PhaseLost
}

// TimeLeft returns the remaining countdown in seconds.
func (s *Session) TimeLeft() int {
	return s.timeLeft
}

func (s *Session) findPlayer(playerID string) *Player {
	for _, p := range s.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// UpdatePosition overwrites the named player's live fields with the
// caller-supplied values. Coordinates are trusted as-is: movement
// legality is a client concern, the server does no bounds or platform
// collision checks.
func (s *Session) UpdatePosition(playerID string, x, y float64, direction Direction, isMoving, isJumping bool) error {
	player := s.findPlayer(playerID)
	if player == nil {
		return ErrPlayerNotFound
	}
	if s.machine.Current().Terminal() {
		// 终态下位置不再有意义，调用保持为合法的空操作
		return nil
	}

	player.X = x
	player.Y = y
	player.Direction = direction
	player.IsMoving = isMoving
	player.IsJumping = isJumping
	return nil
}

// UpdateCharacter swaps a session player's cosmetic character.
// Legal at any phase, 换装不影响游戏结果。
func (s *Session) UpdateCharacter(playerID, character string) error {
	player := s.findPlayer(playerID)
	if player == nil {
		return ErrPlayerNotFound
	}
	player.Character = character
	return nil
}

// CollectCoin marks the coin collected and credits the collector.
// Returns false without side effects if the coin is unknown, already
// collected, or the session is terminal. At-most-once award per coin.
func (s *Session) CollectCoin(coinID, playerID string) bool {
	if s.machine.Current().Terminal() {
		return false
	}

	var coin *Coin
	for _, c := range s.coins {
		if c.ID == coinID {
			coin = c
			break
		}
	}
	if coin == nil || coin.Collected {
		return false
	}

	coin.Collected = true
	if player := s.findPlayer(playerID); player != nil {
		player.Coins++
	}
	return true
}

// CheckTreasureWin tests the named player against the treasure chest.
// Winning requires the Euclidean distance to be strictly below the
// proximity radius. Once won, further calls return true without
// touching state.
func (s *Session) CheckTreasureWin(playerID string) (bool, error) {
	if s.machine.Current() == state.PhaseWon {
		return true, nil
	}

	player := s.findPlayer(playerID)
	if player == nil {
		return false, ErrPlayerNotFound
	}

	if s.machine.Current().Terminal() {
		return false, nil
	}

	dx := player.X - s.treasure.X
	dy := player.Y - s.treasure.Y
	if math.Sqrt(dx*dx+dy*dy) < s.treasureRadius {
		_ = s.machine.Transition(state.PhaseWon)
		return true, nil
	}
	return false, nil
}

// Tick decrements the countdown by one second, floored at zero.
// Hitting zero loses the game. Terminal or already-expired sessions
// are left untouched and the current value is returned.
func (s *Session) Tick() int {
	if s.machine.Current().Terminal() || s.timeLeft <= 0 {
		return s.timeLeft
	}

	s.timeLeft--
	if s.timeLeft <= 0 {
		s.timeLeft = 0
		_ = s.machine.Transition(state.PhaseLost)
	}
	return s.timeLeft
}

// Snapshot 会话状态的深拷贝，用于对外序列化
type Snapshot struct {
	Players       []Player   `json:"players"`
	Coins         []Coin     `json:"coins"`
	Platforms     []Platform `json:"platforms"`
	TreasureChest Treasure   `json:"treasureChest"`
	TimeLeft      int        `json:"timeLeft"`
	GameWon       bool       `json:"gameWon"`
	GameLost      bool       `json:"gameLost"`
}

// Snapshot copies the full world state. The copy shares nothing with
// the live session, so it may be marshalled outside the room guard.
func (s *Session) Snapshot() *Snapshot {
	players := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, *p)
	}
	coins := make([]Coin, 0, len(s.coins))
	for _, c := range s.coins {
		coins = append(coins, *c)
	}
	platforms := make([]Platform, len(s.platforms))
	copy(platforms, s.platforms)

	return &Snapshot{
		Players:       players,
		Coins:         coins,
		Platforms:     platforms,
		TreasureChest: s.treasure,
		TimeLeft:      s.timeLeft,
		GameWon:       s.Won(),
		GameLost:      s.Lost(),
	}
}
