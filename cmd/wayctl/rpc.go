package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/wayfarer/internal/gameserver"
)

// rpcCall invokes one GameService method for user with positional args.
type rpcCall struct {
	usage string
	nargs int
	call  func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error)
}

var rpcCalls = map[string]rpcCall{
	"create": {"<name>", 1, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error) {
		return c.CreatePlayer(ctx, &gameserver.CreatePlayerRequest{UserID: user, Name: args[0]})
	}},
	"player": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.GetPlayer(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"roll": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.RollDice(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"move": {"<forward|backward> <steps>", 2, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error) {
		steps, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("steps: %w", err)
		}
		return c.Move(ctx, &gameserver.MoveRequest{UserID: user, Direction: args[0], Steps: steps})
	}},
	"follow": {"<connection-id>", 1, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error) {
		return c.MoveToConnection(ctx, &gameserver.ConnectionRequest{UserID: user, ConnectionID: args[0]})
	}},
	"go": {"<direction>", 1, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error) {
		return c.MoveToDirection(ctx, &gameserver.DirectionRequest{UserID: user, Direction: args[0]})
	}},
	"branch": {"<direction>", 1, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error) {
		return c.MoveToBranch(ctx, &gameserver.DirectionRequest{UserID: user, Direction: args[0]})
	}},
	"position": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.GetPosition(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"connections": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.ListConnections(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"special": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.PerformSpecialAction(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"fight": {"[monster-id]", -1, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error) {
		req := &gameserver.StartBattleRequest{UserID: user}
		if len(args) > 0 {
			req.MonsterID = args[0]
		}
		return c.StartBattle(ctx, req)
	}},
	"attack": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.Attack(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"defend": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.Defend(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"escape": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.Escape(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"skill": {"<skill-id>", 1, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error) {
		return c.UseSkill(ctx, &gameserver.SkillRequest{UserID: user, SkillID: args[0]})
	}},
	"end": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.EndBattle(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"battle": {"", 0, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, _ []string) (any, error) {
		return c.CurrentBattle(ctx, &gameserver.UserRequest{UserID: user})
	}},
	"history": {"[limit]", -1, func(ctx context.Context, c *gameserver.GameServiceClient, user int64, args []string) (any, error) {
		req := &gameserver.HistoryRequest{UserID: user}
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, fmt.Errorf("limit: %w", err)
			}
			req.Limit = n
		}
		return c.History(ctx, req)
	}},
}

func cmdRPC() *cobra.Command {
	var addr string
	var user int64
	var timeout time.Duration

	var lines []string
	for _, name := range sortedKeys(rpcCalls) {
		lines = append(lines, fmt.Sprintf("  %-12s %s", name, rpcCalls[name].usage))
	}
	var cmd = &cobra.Command{
		Use:          "rpc <call> [args...]",
		Short:        "call a running game server",
		Long:         "Call a running game server as --user and print the reply as JSON.\n\nCalls:\n" + strings.Join(lines, "\n"),
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, ok := rpcCalls[args[0]]
			if !ok {
				return fmt.Errorf("unknown call %q", args[0])
			}
			rest := args[1:]
			if rc.nargs >= 0 && len(rest) != rc.nargs {
				return fmt.Errorf("usage: %s %s", args[0], rc.usage)
			}

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			out, err := rc.call(ctx, gameserver.NewGameServiceClient(conn), user, rest)
			if err != nil {
				if reason := gameserver.ErrorReason(err); reason != "" {
					return fmt.Errorf("%s (%s)", status.Convert(err).Message(), reason)
				}
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "game server address")
	cmd.Flags().Int64VarP(&user, "user", "u", 1, "acting user id")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "call timeout")
	return cmd
}
