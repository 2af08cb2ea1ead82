package network

// 消息ID划分：1xx 大厅生命周期，2xx 会话操作，3xx 服务端推送
const (
	MsgTypeHeartbeat       = 1
	MsgTypeError           = 2
	MsgTypeCreateRoom      = 101
	MsgTypeJoinRoom        = 102
	MsgTypeLeaveRoom       = 103
	MsgTypeGetRoom         = 104
	MsgTypeUpdateCharacter = 105
	MsgTypeStartGame       = 106
	MsgTypeUpdatePosition  = 201
	MsgTypeCollectCoin     = 202
	MsgTypeCheckTreasure   = 203
	MsgTypeRoomState       = 301
	MsgTypeGameStarted     = 302
	MsgTypeGameOver        = 303
)
