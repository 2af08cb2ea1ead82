// rpc/rpc.go
package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/treasurehunt/logger"
	"github.com/wfunc/treasurehunt/room"
	"github.com/wfunc/treasurehunt/session"
)

// ErrInvalidInput 请求形参不合法，在触达引擎之前拒绝
var ErrInvalidInput = errors.New("invalid input")

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// RoomService exposes every engine operation over net/rpc.
// Methods follow the net/rpc signature: exported method, exported
// argument structs, pointer reply, error return.
type RoomService struct {
	rooms *room.Manager
}

func NewRoomService(rooms *room.Manager) *RoomService {
	return &RoomService{rooms: rooms}
}

type CreateRoomArgs struct {
	RoomName      string
	MaxPlayers    int
	HostName      string
	HostCharacter string
}

type CreateRoomReply struct {
	RoomID        string
	RoomName      string
	MaxPlayers    int
	HostID        string
	HostName      string
	HostCharacter string
}

func (s *RoomService) CreateRoom(args *CreateRoomArgs, reply *CreateRoomReply) error {
	if args.RoomName == "" || args.HostName == "" {
		return ErrInvalidInput
	}

	r, host, err := s.rooms.CreateRoom(args.RoomName, args.MaxPlayers, args.HostName, args.HostCharacter)
	if err != nil {
		return err
	}

	reply.RoomID = r.ID
	reply.RoomName = r.Name
	reply.MaxPlayers = r.MaxPlayers
	reply.HostID = host.ID
	reply.HostName = host.Name
	reply.HostCharacter = host.Character
	return nil
}

type GetRoomArgs struct {
	RoomID string
}

type GetRoomReply struct {
	// Room 为 nil 表示房间不存在；这不是错误
	Room *room.Snapshot
}

func (s *RoomService) GetRoom(args *GetRoomArgs, reply *GetRoomReply) error {
	reply.Room = s.rooms.Snapshot(args.RoomID)
	return nil
}

type JoinRoomArgs struct {
	RoomID          string
	PlayerName      string
	PlayerCharacter string
}

type JoinRoomReply struct {
	PlayerID string
	Room     *room.Snapshot
}

func (s *RoomService) JoinRoom(args *JoinRoomArgs, reply *JoinRoomReply) error {
	if args.PlayerName == "" {
		return ErrInvalidInput
	}

	player, err := s.rooms.JoinRoom(args.RoomID, args.PlayerName, args.PlayerCharacter)
	if err != nil {
		return err
	}

	reply.PlayerID = player.ID
	reply.Room = s.rooms.Snapshot(args.RoomID)
	return nil
}

type LeaveRoomArgs struct {
	RoomID   string
	PlayerID string
}

type LeaveRoomReply struct {
	Success bool
}

func (s *RoomService) LeaveRoom(args *LeaveRoomArgs, reply *LeaveRoomReply) error {
	// 缺席的玩家按空操作处理，始终算成功
	s.rooms.LeaveRoom(args.RoomID, args.PlayerID)
	reply.Success = true
	return nil
}

type UpdateCharacterArgs struct {
	RoomID    string
	PlayerID  string
	Character string
}

type UpdateCharacterReply struct {
	Success bool
}

func (s *RoomService) UpdatePlayerCharacter(args *UpdateCharacterArgs, reply *UpdateCharacterReply) error {
	if err := s.rooms.UpdateCharacter(args.RoomID, args.PlayerID, args.Character); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

type StartGameArgs struct {
	RoomID      string
	RequesterID string
}

type StartGameReply struct {
	Success bool
	Room    *room.Snapshot
}

func (s *RoomService) StartGame(args *StartGameArgs, reply *StartGameReply) error {
	if err := s.rooms.StartGame(args.RoomID, args.RequesterID); err != nil {
		return err
	}
	reply.Success = true
	reply.Room = s.rooms.Snapshot(args.RoomID)
	return nil
}

type UpdatePositionArgs struct {
	RoomID    string
	PlayerID  string
	X         float64
	Y         float64
	Direction string
	IsMoving  bool
	IsJumping bool
}

type UpdatePositionReply struct {
	Success bool
}

func (s *RoomService) UpdatePlayerPosition(args *UpdatePositionArgs, reply *UpdatePositionReply) error {
	direction := session.Direction(args.Direction)
	if !session.ValidDirection(direction) {
		return ErrInvalidInput
	}

	if err := s.rooms.UpdatePosition(args.RoomID, args.PlayerID, args.X, args.Y, direction, args.IsMoving, args.IsJumping); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

type CollectCoinArgs struct {
	RoomID   string
	CoinID   string
	PlayerID string
}

type CollectCoinReply struct {
	Collected bool
}

func (s *RoomService) CollectCoin(args *CollectCoinArgs, reply *CollectCoinReply) error {
	collected, err := s.rooms.CollectCoin(args.RoomID, args.CoinID, args.PlayerID)
	if err != nil {
		return err
	}
	reply.Collected = collected
	return nil
}

type CheckTreasureWinArgs struct {
	RoomID   string
	PlayerID string
}

type CheckTreasureWinReply struct {
	Won bool
}

func (s *RoomService) CheckTreasureWin(args *CheckTreasureWinArgs, reply *CheckTreasureWinReply) error {
	won, err := s.rooms.CheckTreasureWin(args.RoomID, args.PlayerID)
	if err != nil {
		return err
	}
	reply.Won = won
	return nil
}

type TickSessionTimeArgs struct {
	RoomID string
}

type TickSessionTimeReply struct {
	TimeLeft int
}

func (s *RoomService) TickSessionTime(args *TickSessionTimeArgs, reply *TickSessionTimeReply) error {
	timeLeft, err := s.rooms.Tick(args.RoomID)
	if err != nil {
		return err
	}
	reply.TimeLeft = timeLeft
	return nil
}
