// models/models.go
package models

import (
	"time"
)

// 终局结果
const (
	OutcomeWon  = "won"
	OutcomeLost = "lost"
)

// MatchRecord 一局结束后的存档；只写不读，引擎重启不恢复任何状态
type MatchRecord struct {
	RoomID    string        `json:"room_id"`
	RoomName  string        `json:"room_name"`
	Outcome   string        `json:"outcome"`
	TimeUsed  int           `json:"time_used"` // 实际消耗的倒计时秒数
	Players   []MatchPlayer `json:"players"`
	CreatedAt time.Time     `json:"created_at"`
}

// MatchPlayer 存档里的单个玩家战绩
type MatchPlayer struct {
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Coins     int    `json:"coins"`
}
