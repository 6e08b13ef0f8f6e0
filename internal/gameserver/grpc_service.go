package gameserver

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wayfarer.v1.GameService"

// codecName is the content-subtype clients must request.
const codecName = "json"

// jsonCodec carries request and response structs as JSON.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// UserRequest identifies the acting user.
type UserRequest struct {
	UserID int64 `json:"user_id"`
}

// CreatePlayerRequest registers a player.
type CreatePlayerRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// MoveRequest walks along a pathway.
type MoveRequest struct {
	UserID    int64  `json:"user_id"`
	Direction string `json:"direction"`
	Steps     int    `json:"steps"`
}

// ConnectionRequest follows a connection by ID.
type ConnectionRequest struct {
	UserID       int64  `json:"user_id"`
	ConnectionID string `json:"connection_id"`
}

// DirectionRequest follows the connection leading in a named direction.
type DirectionRequest struct {
	UserID    int64  `json:"user_id"`
	Direction string `json:"direction"`
}

// StartBattleRequest accepts the pending encounter. MonsterID may be empty.
type StartBattleRequest struct {
	UserID    int64  `json:"user_id"`
	MonsterID string `json:"monster_id"`
}

// SkillRequest casts a skill.
type SkillRequest struct {
	UserID  int64  `json:"user_id"`
	SkillID string `json:"skill_id"`
}

// HistoryRequest lists finished battles.
type HistoryRequest struct {
	UserID int64 `json:"user_id"`
	Limit  int   `json:"limit"`
}

// ConnectionsResponse lists visible connections.
type ConnectionsResponse struct {
	Connections []ConnectionView `json:"connections"`
}

// HistoryResponse lists finished battles, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// GameServiceServer is the server API for wayfarer.v1.GameService.
type GameServiceServer interface {
	CreatePlayer(context.Context, *CreatePlayerRequest) (*player.Player, error)
	GetPlayer(context.Context, *UserRequest) (*player.Player, error)
	RollDice(context.Context, *UserRequest) (*RollResult, error)
	Move(context.Context, *MoveRequest) (*MoveResult, error)
	MoveToConnection(context.Context, *ConnectionRequest) (*MoveResult, error)
	MoveToDirection(context.Context, *DirectionRequest) (*MoveResult, error)
	MoveToBranch(context.Context, *DirectionRequest) (*MoveResult, error)
	GetPosition(context.Context, *UserRequest) (*PositionView, error)
	ListConnections(context.Context, *UserRequest) (*ConnectionsResponse, error)
	PerformSpecialAction(context.Context, *UserRequest) (*SpecialActionResult, error)
	StartBattle(context.Context, *StartBattleRequest) (*battle.Result, error)
	Attack(context.Context, *UserRequest) (*battle.Result, error)
	Defend(context.Context, *UserRequest) (*battle.Result, error)
	Escape(context.Context, *UserRequest) (*battle.Result, error)
	UseSkill(context.Context, *SkillRequest) (*battle.Result, error)
	EndBattle(context.Context, *UserRequest) (*battle.Result, error)
	CurrentBattle(context.Context, *UserRequest) (*battle.Result, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
}

// GameServiceDesc describes wayfarer.v1.GameService for grpc.Server.
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreatePlayer", GameServiceServer.CreatePlayer),
		unary("GetPlayer", GameServiceServer.GetPlayer),
		unary("RollDice", GameServiceServer.RollDice),
		unary("Move", GameServiceServer.Move),
		unary("MoveToConnection", GameServiceServer.MoveToConnection),
		unary("MoveToDirection", GameServiceServer.MoveToDirection),
		unary("MoveToBranch", GameServiceServer.MoveToBranch),
		unary("GetPosition", GameServiceServer.GetPosition),
		unary("ListConnections", GameServiceServer.ListConnections),
		unary("PerformSpecialAction", GameServiceServer.PerformSpecialAction),
		unary("StartBattle", GameServiceServer.StartBattle),
		unary("Attack", GameServiceServer.Attack),
		unary("Defend", GameServiceServer.Defend),
		unary("Escape", GameServiceServer.Escape),
		unary("UseSkill", GameServiceServer.UseSkill),
		unary("EndBattle", GameServiceServer.EndBattle),
		unary("CurrentBattle", GameServiceServer.CurrentBattle),
		unary("History", GameServiceServer.History),
	},
	Metadata: "wayfarer/v1/game",
}

// unary builds the method descriptor for one request/response call.
func unary[Req, Resp any](name string, call func(GameServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(GameServiceServer), ctx, req.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RegisterGameServiceServer registers srv with s.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&GameServiceDesc, srv)
}

// NewGRPCServer builds a grpc.Server exposing gs and the standard health
// service, with gs's service marked SERVING.
//
// Postcondition: Returns a server ready for Serve and its health server.
func NewGRPCServer(gs *GameServer, logger *zap.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	RegisterGameServiceServer(s, gs)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("rpc handled",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return resp, err
	}
}

// GameServer adapts Service to GameServiceServer.
type GameServer struct {
	svc *Service
}

// NewGameServer wraps svc for gRPC.
//
// Precondition: svc must be non-nil.
func NewGameServer(svc *Service) *GameServer {
	return &GameServer{svc: svc}
}

var _ GameServiceServer = (*GameServer)(nil)

func checkUser(userID int64) error {
	if userID <= 0 {
		return status.Error(codes.InvalidArgument, "user_id must be positive")
	}
	return nil
}

// respond converts a Service call's outcome into a gRPC reply.
func respond[T any](v T, err error) (*T, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &v, nil
}

// CreatePlayer implements GameServiceServer.
func (g *GameServer) CreatePlayer(ctx context.Context, req *CreatePlayerRequest) (*player.Player, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "name must not be empty")
	}
	p, err := g.svc.CreatePlayer(ctx, req.UserID, req.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	return p, nil
}

// GetPlayer implements GameServiceServer.
func (g *GameServer) GetPlayer(ctx context.Context, req *UserRequest) (*player.Player, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	p, err := g.svc.Player(ctx, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return p, nil
}

// RollDice implements GameServiceServer.
func (g *GameServer) RollDice(ctx context.Context, req *UserRequest) (*RollResult, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.RollDice(ctx, req.UserID))
}

// Move implements GameServiceServer.
func (g *GameServer) Move(ctx context.Context, req *MoveRequest) (*MoveResult, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.Move(ctx, req.UserID, req.Direction, req.Steps))
}

// MoveToConnection implements GameServiceServer.
func (g *GameServer) MoveToConnection(ctx context.Context, req *ConnectionRequest) (*MoveResult, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.MoveToConnection(ctx, req.UserID, req.ConnectionID))
}

// MoveToDirection implements GameServiceServer.
func (g *GameServer) MoveToDirection(ctx context.Context, req *DirectionRequest) (*MoveResult, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.MoveToDirection(ctx, req.UserID, req.Direction))
}

// MoveToBranch implements GameServiceServer.
func (g *GameServer) MoveToBranch(ctx context.Context, req *DirectionRequest) (*MoveResult, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.MoveToBranch(ctx, req.UserID, req.Direction))
}

// GetPosition implements GameServiceServer.
func (g *GameServer) GetPosition(ctx context.Context, req *UserRequest) (*PositionView, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.Position(ctx, req.UserID))
}

// ListConnections implements GameServiceServer.
func (g *GameServer) ListConnections(ctx context.Context, req *UserRequest) (*ConnectionsResponse, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	conns, err := g.svc.Connections(ctx, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ConnectionsResponse{Connections: conns}, nil
}

// PerformSpecialAction implements GameServiceServer.
func (g *GameServer) PerformSpecialAction(ctx context.Context, req *UserRequest) (*SpecialActionResult, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.PerformSpecialAction(ctx, req.UserID))
}

// StartBattle implements GameServiceServer.
func (g *GameServer) StartBattle(ctx context.Context, req *StartBattleRequest) (*battle.Result, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.StartBattle(ctx, req.UserID, req.MonsterID))
}

// Attack implements GameServiceServer.
func (g *GameServer) Attack(ctx context.Context, req *UserRequest) (*battle.Result, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.Attack(ctx, req.UserID))
}

// Defend implements GameServiceServer.
func (g *GameServer) Defend(ctx context.Context, req *UserRequest) (*battle.Result, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.Defend(ctx, req.UserID))
}

// Escape implements GameServiceServer.
func (g *GameServer) Escape(ctx context.Context, req *UserRequest) (*battle.Result, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.Escape(ctx, req.UserID))
}

// UseSkill implements GameServiceServer.
func (g *GameServer) UseSkill(ctx context.Context, req *SkillRequest) (*battle.Result, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.UseSkill(ctx, req.UserID, req.SkillID))
}

// EndBattle implements GameServiceServer.
func (g *GameServer) EndBattle(ctx context.Context, req *UserRequest) (*battle.Result, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.EndBattle(ctx, req.UserID))
}

// CurrentBattle implements GameServiceServer.
func (g *GameServer) CurrentBattle(ctx context.Context, req *UserRequest) (*battle.Result, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	return respond(g.svc.CurrentBattle(ctx, req.UserID))
}

// History implements GameServiceServer.
func (g *GameServer) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if err := checkUser(req.UserID); err != nil {
		return nil, err
	}
	entries, err := g.svc.History(ctx, req.UserID, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &HistoryResponse{Entries: entries}, nil
}
