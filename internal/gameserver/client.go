package gameserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
)

// GameServiceClient calls wayfarer.v1.GameService using the JSON codec.
type GameServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGameServiceClient wraps an established connection.
func NewGameServiceClient(cc grpc.ClientConnInterface) *GameServiceClient {
	return &GameServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *GameServiceClient, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePlayer registers a player.
func (c *GameServiceClient) CreatePlayer(ctx context.Context, in *CreatePlayerRequest, opts ...grpc.CallOption) (*player.Player, error) {
	return invoke[player.Player](ctx, c, "CreatePlayer", in, opts...)
}

// GetPlayer fetches the player record.
func (c *GameServiceClient) GetPlayer(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*player.Player, error) {
	return invoke[player.Player](ctx, c, "GetPlayer", in, opts...)
}

// RollDice rolls movement dice.
func (c *GameServiceClient) RollDice(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*RollResult, error) {
	return invoke[RollResult](ctx, c, "RollDice", in, opts...)
}

// Move walks along the current pathway.
func (c *GameServiceClient) Move(ctx context.Context, in *MoveRequest, opts ...grpc.CallOption) (*MoveResult, error) {
	return invoke[MoveResult](ctx, c, "Move", in, opts...)
}

// MoveToConnection follows a connection by ID.
func (c *GameServiceClient) MoveToConnection(ctx context.Context, in *ConnectionRequest, opts ...grpc.CallOption) (*MoveResult, error) {
	return invoke[MoveResult](ctx, c, "MoveToConnection", in, opts...)
}

// MoveToDirection follows the connection leading in a direction.
func (c *GameServiceClient) MoveToDirection(ctx context.Context, in *DirectionRequest, opts ...grpc.CallOption) (*MoveResult, error) {
	return invoke[MoveResult](ctx, c, "MoveToDirection", in, opts...)
}

// MoveToBranch takes a branch option.
func (c *GameServiceClient) MoveToBranch(ctx context.Context, in *DirectionRequest, opts ...grpc.CallOption) (*MoveResult, error) {
	return invoke[MoveResult](ctx, c, "MoveToBranch", in, opts...)
}

// GetPosition fetches the position view.
func (c *GameServiceClient) GetPosition(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*PositionView, error) {
	return invoke[PositionView](ctx, c, "GetPosition", in, opts...)
}

// ListConnections lists visible connections.
func (c *GameServiceClient) ListConnections(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*ConnectionsResponse, error) {
	return invoke[ConnectionsResponse](ctx, c, "ListConnections", in, opts...)
}

// PerformSpecialAction triggers the event at the current position.
func (c *GameServiceClient) PerformSpecialAction(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*SpecialActionResult, error) {
	return invoke[SpecialActionResult](ctx, c, "PerformSpecialAction", in, opts...)
}

// StartBattle fights the pending encounter.
func (c *GameServiceClient) StartBattle(ctx context.Context, in *StartBattleRequest, opts ...grpc.CallOption) (*battle.Result, error) {
	return invoke[battle.Result](ctx, c, "StartBattle", in, opts...)
}

// Attack attacks in the current battle.
func (c *GameServiceClient) Attack(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*battle.Result, error) {
	return invoke[battle.Result](ctx, c, "Attack", in, opts...)
}

// Defend defends in the current battle.
func (c *GameServiceClient) Defend(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*battle.Result, error) {
	return invoke[battle.Result](ctx, c, "Defend", in, opts...)
}

// Escape tries to flee the current battle.
func (c *GameServiceClient) Escape(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*battle.Result, error) {
	return invoke[battle.Result](ctx, c, "Escape", in, opts...)
}

// UseSkill casts a skill in the current battle.
func (c *GameServiceClient) UseSkill(ctx context.Context, in *SkillRequest, opts ...grpc.CallOption) (*battle.Result, error) {
	return invoke[battle.Result](ctx, c, "UseSkill", in, opts...)
}

// EndBattle force-ends the current battle.
func (c *GameServiceClient) EndBattle(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*battle.Result, error) {
	return invoke[battle.Result](ctx, c, "EndBattle", in, opts...)
}

// CurrentBattle fetches the current battle.
func (c *GameServiceClient) CurrentBattle(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*battle.Result, error) {
	return invoke[battle.Result](ctx, c, "CurrentBattle", in, opts...)
}

// History lists finished battles.
func (c *GameServiceClient) History(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c, "History", in, opts...)
}
