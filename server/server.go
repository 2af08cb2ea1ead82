package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/treasurehunt/broadcast"
	"github.com/wfunc/treasurehunt/logger"
	"github.com/wfunc/treasurehunt/monitor"
	"github.com/wfunc/treasurehunt/network"
	"github.com/wfunc/treasurehunt/room"
	treasurehunt_rpc "github.com/wfunc/treasurehunt/rpc"
	"github.com/wfunc/treasurehunt/services"
	"github.com/wfunc/treasurehunt/session"
	"github.com/wfunc/treasurehunt/timer"

	netrpc "net/rpc"
)

// GameServer 对外入口：websocket 门面加上 net/rpc 门面，二者共享同一个
// 房间注册表。每个已开局房间由定时器驱动每秒一次 tick。
type GameServer struct {
	addr      string
	upgrader  websocket.Upgrader
	rooms     *room.Manager
	hub       *broadcast.Hub
	timers    *timer.Manager
	records   *services.RecordService
	monitor   *monitor.Monitor
	rpcServer *treasurehunt_rpc.Server

	mu           sync.Mutex
	tickTasks    map[string]int64 // roomID -> timer task handle
	shutdownChan chan struct{}
}

func NewGameServer(addr, rpcAddr string, rooms *room.Manager, records *services.RecordService, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:         addr,
		rooms:        rooms,
		hub:          broadcast.NewHub(),
		timers:       timer.NewManager(),
		records:      records,
		monitor:      mon,
		tickTasks:    make(map[string]int64),
		shutdownChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	rpcServer, err := treasurehunt_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	if err := netrpc.Register(treasurehunt_rpc.NewRoomService(rooms)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

// client 单个连接的身份；创建或加入房间后填充
type client struct {
	conn     network.Connection
	roomID   string
	playerID string
}

func (s *GameServer) handleConnection(conn network.Connection) {
	c := &client{conn: conn}

	s.monitor.IncConnectedPlayers()
	logger.Log.Infof("New connection from %s", conn.RemoteAddr())

	defer func() {
		logger.Log.Infof("Connection closed from %s", conn.RemoteAddr())
		s.monitor.DecConnectedPlayers()
		s.dropClient(c)
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := conn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(c, packet)
		}
	}
}

// dropClient 断线即离房：移除玩家并在需要时销毁房间
func (s *GameServer) dropClient(c *client) {
	if c.roomID == "" || c.playerID == "" {
		return
	}

	s.hub.Unregister(c.roomID, c.playerID)
	s.rooms.LeaveRoom(c.roomID, c.playerID)
	if _, exists := s.rooms.GetRoom(c.roomID); !exists {
		s.roomDestroyed(c.roomID)
	} else {
		s.broadcastRoomState(c.roomID)
	}
	s.monitor.SetActiveRooms(s.rooms.Count())
}

func (s *GameServer) handlePacket(c *client, packet *network.Packet) {
	start := time.Now()
	defer func() {
		s.monitor.ObserveOpLatency(time.Since(start))
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// nothing to refresh yet
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(c, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(c, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(c, packet)
	case network.MsgTypeGetRoom:
		s.handleGetRoom(c, packet)
	case network.MsgTypeUpdateCharacter:
		s.handleUpdateCharacter(c, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(c, packet)
	case network.MsgTypeUpdatePosition:
		s.handleUpdatePosition(c, packet)
	case network.MsgTypeCollectCoin:
		s.handleCollectCoin(c, packet)
	case network.MsgTypeCheckTreasure:
		s.handleCheckTreasure(c, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// sendError 把引擎错误回给调用方；失败原因对调用方总是可纠正的
func (s *GameServer) sendError(c *client, op uint16, err error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"op":    op,
		"error": err.Error(),
	})
	c.conn.Send(network.MsgTypeError, payload)
}

func (s *GameServer) reply(c *client, msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Failed to marshal reply for msg %d: %v", msgID, err)
		return
	}
	c.conn.Send(msgID, data)
}

func (s *GameServer) broadcastRoomState(roomID string) {
	snap := s.rooms.Snapshot(roomID)
	if snap == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Log.Errorf("Failed to marshal room state for %s: %v", roomID, err)
		return
	}
	s.hub.BroadcastToRoom(roomID, network.MsgTypeRoomState, data)
}

type createRoomRequest struct {
	RoomName      string `json:"roomName"`
	MaxPlayers    int    `json:"maxPlayers"`
	HostName      string `json:"hostName"`
	HostCharacter string `json:"hostCharacter"`
}

func (s *GameServer) handleCreateRoom(c *client, packet *network.Packet) {
	var req createRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}
	if req.RoomName == "" || req.HostName == "" {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	r, host, err := s.rooms.CreateRoom(req.RoomName, req.MaxPlayers, req.HostName, req.HostCharacter)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}

	c.roomID = r.ID
	c.playerID = host.ID
	s.hub.Register(r.ID, host.ID, c.conn)
	s.monitor.SetActiveRooms(s.rooms.Count())
	s.monitor.CountOperation("create_room")

	logger.Log.Infof("Player %s created room %s", host.Name, r.ID)

	s.reply(c, packet.MsgID, map[string]interface{}{
		"roomId":        r.ID,
		"roomName":      r.Name,
		"maxPlayers":    r.MaxPlayers,
		"hostId":        host.ID,
		"hostName":      host.Name,
		"hostCharacter": host.Character,
	})
}

type joinRoomRequest struct {
	RoomID          string `json:"roomId"`
	PlayerName      string `json:"playerName"`
	PlayerCharacter string `json:"playerCharacter"`
}

func (s *GameServer) handleJoinRoom(c *client, packet *network.Packet) {
	var req joinRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.PlayerName == "" {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	player, err := s.rooms.JoinRoom(req.RoomID, req.PlayerName, req.PlayerCharacter)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}

	c.roomID = req.RoomID
	c.playerID = player.ID
	s.hub.Register(req.RoomID, player.ID, c.conn)
	s.monitor.CountOperation("join_room")

	logger.Log.Infof("Player %s joined room %s", player.Name, req.RoomID)

	s.reply(c, packet.MsgID, map[string]interface{}{
		"playerId": player.ID,
		"room":     s.rooms.Snapshot(req.RoomID),
	})
	s.broadcastRoomState(req.RoomID)
}

type leaveRoomRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

func (s *GameServer) handleLeaveRoom(c *client, packet *network.Packet) {
	var req leaveRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	s.hub.Unregister(req.RoomID, req.PlayerID)
	s.rooms.LeaveRoom(req.RoomID, req.PlayerID)
	s.monitor.CountOperation("leave_room")

	if req.RoomID == c.roomID && req.PlayerID == c.playerID {
		c.roomID = ""
		c.playerID = ""
	}

	if _, exists := s.rooms.GetRoom(req.RoomID); !exists {
		s.roomDestroyed(req.RoomID)
	} else {
		s.broadcastRoomState(req.RoomID)
	}
	s.monitor.SetActiveRooms(s.rooms.Count())

	s.reply(c, packet.MsgID, map[string]bool{"success": true})
}

type getRoomRequest struct {
	RoomID string `json:"roomId"`
}

func (s *GameServer) handleGetRoom(c *client, packet *network.Packet) {
	var req getRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	// 不存在返回 null，属于正常结果
	s.reply(c, packet.MsgID, map[string]interface{}{
		"room": s.rooms.Snapshot(req.RoomID),
	})
}

type updateCharacterRequest struct {
	RoomID    string `json:"roomId"`
	PlayerID  string `json:"playerId"`
	Character string `json:"character"`
}

func (s *GameServer) handleUpdateCharacter(c *client, packet *network.Packet) {
	var req updateCharacterRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	if err := s.rooms.UpdateCharacter(req.RoomID, req.PlayerID, req.Character); err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.monitor.CountOperation("update_character")

	s.reply(c, packet.MsgID, map[string]bool{"success": true})
	s.broadcastRoomState(req.RoomID)
}

type startGameRequest struct {
	RoomID      string `json:"roomId"`
	RequesterID string `json:"requesterId"`
}

func (s *GameServer) handleStartGame(c *client, packet *network.Packet) {
	var req startGameRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	if err := s.rooms.StartGame(req.RoomID, req.RequesterID); err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.monitor.CountOperation("start_game")

	logger.Log.Infof("Room %s started its session", req.RoomID)
	s.startTicking(req.RoomID)

	s.reply(c, packet.MsgID, map[string]interface{}{
		"success": true,
		"room":    s.rooms.Snapshot(req.RoomID),
	})

	snap := s.rooms.Snapshot(req.RoomID)
	if data, err := json.Marshal(snap); err == nil {
		s.hub.BroadcastToRoom(req.RoomID, network.MsgTypeGameStarted, data)
	}
}

type updatePositionRequest struct {
	RoomID    string  `json:"roomId"`
	PlayerID  string  `json:"playerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
	IsMoving  bool    `json:"isMoving"`
	IsJumping bool    `json:"isJumping"`
}

func (s *GameServer) handleUpdatePosition(c *client, packet *network.Packet) {
	var req updatePositionRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	direction := session.Direction(req.Direction)
	if !session.ValidDirection(direction) {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	err := s.rooms.UpdatePosition(req.RoomID, req.PlayerID, req.X, req.Y, direction, req.IsMoving, req.IsJumping)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.monitor.CountOperation("update_position")

	s.reply(c, packet.MsgID, map[string]bool{"success": true})
	s.broadcastRoomState(req.RoomID)
}

type collectCoinRequest struct {
	RoomID   string `json:"roomId"`
	CoinID   string `json:"coinId"`
	PlayerID string `json:"playerId"`
}

func (s *GameServer) handleCollectCoin(c *client, packet *network.Packet) {
	var req collectCoinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	collected, err := s.rooms.CollectCoin(req.RoomID, req.CoinID, req.PlayerID)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.monitor.CountOperation("collect_coin")

	s.reply(c, packet.MsgID, map[string]bool{"collected": collected})
	if collected {
		s.broadcastRoomState(req.RoomID)
	}
}

type checkTreasureRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

func (s *GameServer) handleCheckTreasure(c *client, packet *network.Packet) {
	var req checkTreasureRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(c, packet.MsgID, treasurehunt_rpc.ErrInvalidInput)
		return
	}

	won, err := s.rooms.CheckTreasureWin(req.RoomID, req.PlayerID)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.monitor.CountOperation("check_treasure")

	s.reply(c, packet.MsgID, map[string]bool{"won": won})
	if won {
		s.sessionFinished(req.RoomID)
	}
}

// --- tick 驱动 ---

// startTicking schedules the 1 Hz countdown for a started room.
// The engine itself has no internal timer; this is the external
// driver the tick contract expects.
func (s *GameServer) startTicking(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickTasks[roomID]; exists {
		return
	}
	s.tickTasks[roomID] = s.timers.Schedule(time.Second, time.Second, func() {
		s.tickRoom(roomID)
	})
}

func (s *GameServer) stopTicking(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if taskID, exists := s.tickTasks[roomID]; exists {
		s.timers.Cancel(taskID)
		delete(s.tickTasks, roomID)
	}
}

func (s *GameServer) tickRoom(roomID string) {
	if _, err := s.rooms.Tick(roomID); err != nil {
		// 房间已销毁或会话丢失，停表即可
		s.stopTicking(roomID)
		return
	}
	s.broadcastRoomState(roomID)

	if r, exists := s.rooms.GetRoom(roomID); exists && r.Terminal() {
		s.sessionFinished(roomID)
	}
}

// sessionFinished archives the outcome and announces it. Idempotent:
// the ticker map guards against double archiving.
func (s *GameServer) sessionFinished(roomID string) {
	s.mu.Lock()
	taskID, ticking := s.tickTasks[roomID]
	if ticking {
		s.timers.Cancel(taskID)
		delete(s.tickTasks, roomID)
	}
	s.mu.Unlock()
	if !ticking {
		return
	}

	snap := s.rooms.Snapshot(roomID)
	if snap == nil || snap.GameState == nil {
		return
	}

	if snap.GameState.GameWon {
		s.monitor.CountSessionWon()
	} else {
		s.monitor.CountSessionLost()
	}
	s.records.SaveFinished(snap)

	if data, err := json.Marshal(snap); err == nil {
		s.hub.BroadcastToRoom(roomID, network.MsgTypeGameOver, data)
	}
	logger.Log.Infof("Room %s session finished, won=%v", roomID, snap.GameState.GameWon)
}

func (s *GameServer) roomDestroyed(roomID string) {
	s.stopTicking(roomID)
	s.hub.DropRoom(roomID)
}
