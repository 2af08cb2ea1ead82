package room

import "errors"

// 引擎可恢复错误分类；调用方据此纠正请求后可重试
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrNoActiveSession    = errors.New("no active session")
	ErrNotHost            = errors.New("only the host can start the game")
	ErrInvalidMaxPlayers  = errors.New("max players must be between 2 and 6")
)
