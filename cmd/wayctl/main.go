// Package main provides wayctl, the content and operations utility.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/skill"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/gameserver"
	"github.com/cory-johannsen/wayfarer/internal/observability"
	"github.com/cory-johannsen/wayfarer/internal/scripting"
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
)

func main() {
	var configFile string
	var cmdRoot = &cobra.Command{
		Use:   "wayctl",
		Short: "Wayfarer command line utility",
		Long:  `Validate content, inspect the world graph, roll dice and call a running game server`,
	}
	cmdRoot.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/dev.yaml", "configuration file")
	cmdRoot.AddCommand(cmdContent(&configFile))
	cmdRoot.AddCommand(cmdGraph(&configFile))
	cmdRoot.AddCommand(cmdDice())
	cmdRoot.AddCommand(cmdBattle(&configFile))
	cmdRoot.AddCommand(cmdRPC())

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

// content is everything loaded from the configured content directories.
type content struct {
	cfg     config.Config
	graph   *world.Graph
	catalog *monster.Catalog
	skills  *skill.Registry
}

func loadContent(configFile string) (*content, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	g, err := world.LoadGraphFromDir(cfg.Content.LocationsDir)
	if err != nil {
		return nil, err
	}
	c, err := monster.LoadCatalog(cfg.Content.MonstersDir)
	if err != nil {
		return nil, err
	}
	if err := g.ValidateMonsters(c.Has); err != nil {
		return nil, err
	}
	s, err := skill.LoadRegistry(cfg.Content.SkillsDir)
	if err != nil {
		return nil, err
	}
	return &content{cfg: cfg, graph: g, catalog: c, skills: s}, nil
}

func cmdContent(configFile *string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "content",
		Short: "content commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:          "validate",
		Short:        "load and cross-check every content directory",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			ct, err := loadContent(*configFile)
			if err != nil {
				return err
			}
			if err := validateContent(ct); err != nil {
				return err
			}
			fmt.Printf("ok: %d locations, %d connections, %d monsters, %d skills [%s]\n",
				ct.graph.LocationCount(), ct.graph.ConnectionCount(), ct.catalog.Len(), ct.skills.Len(), time.Since(started))
			return nil
		},
	})
	return cmd
}

// validateContent checks what loading alone does not: the configured towns,
// the starter skills and a Lua hook for every scripted skill.
func validateContent(ct *content) error {
	for _, name := range []string{ct.cfg.Game.StartLocation, ct.cfg.Game.DefeatTown} {
		if _, err := ct.graph.GetLocation(world.Town, name); err != nil {
			return fmt.Errorf("town %q: %w", name, err)
		}
	}
	for _, id := range ct.cfg.Game.StarterSkills {
		if _, ok := ct.skills.Get(id); !ok {
			return fmt.Errorf("starter skill %q is not defined", id)
		}
	}
	scripted := ct.skills.Scripted()
	if len(scripted) == 0 {
		return nil
	}
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), zap.NewNop()), zap.NewNop())
	defer mgr.Close()
	if err := mgr.Load(ct.cfg.Content.ScriptsDir, ct.cfg.Content.ScriptInstLimit); err != nil {
		return err
	}
	for _, sk := range scripted {
		if !mgr.HasHook(sk.HookName()) {
			return fmt.Errorf("skill %q: lua hook %q is not defined", sk.ID, sk.HookName())
		}
	}
	return nil
}

func cmdGraph(configFile *string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "graph",
		Short: "world graph commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:          "show [location-id]",
		Short:        "print locations with their branches, events and connections",
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := loadContent(*configFile)
			if err != nil {
				return err
			}
			locs := ct.graph.Locations()
			if len(args) == 1 {
				l, ok := ct.graph.Location(args[0])
				if !ok {
					return fmt.Errorf("no location %q", args[0])
				}
				locs = []*world.Location{l}
			}
			for _, l := range locs {
				printLocation(ct.graph, l)
			}
			return nil
		},
	})
	return cmd
}

func printLocation(g *world.Graph, l *world.Location) {
	fmt.Printf("%s (%s) %q\n", l.ID, l.Category, l.Name)
	if l.Category.IsPathway() {
		if b := g.BranchPositions(l.ID); len(b) > 0 {
			parts := make([]string, len(b))
			for i, p := range b {
				parts[i] = fmt.Sprint(p)
			}
			fmt.Printf("  branches at %s\n", strings.Join(parts, ", "))
		}
		for _, a := range l.SpecialActions {
			fmt.Printf("  @%-3d %-8s %s\n", a.Position, a.Type, a.Label)
		}
	}
	for _, c := range g.ConnectionsFrom(l.ID, nil) {
		from := "any"
		if c.SourcePosition != nil {
			from = fmt.Sprint(*c.SourcePosition)
		}
		state := ""
		if !c.Enabled {
			state = " [disabled]"
		}
		fmt.Printf("  -> %-20s %-6s from %-4s to %s@%d%s\n", c.ID, c.Direction, from, c.TargetLocationID, c.ArrivalPosition(), state)
	}
}

func cmdDice() *cobra.Command {
	var seed uint64
	var times int
	var cmd = &cobra.Command{
		Use:   "dice",
		Short: "dice commands",
	}
	roll := &cobra.Command{
		Use:          "roll <expression>",
		Short:        "roll a dice expression such as 3d6+2",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := dice.Parse(args[0])
			if err != nil {
				return err
			}
			var src dice.Source = dice.NewCryptoSource()
			if seed != 0 {
				src = dice.NewSeededSource(seed)
			}
			for i := 0; i < times; i++ {
				fmt.Println(dice.Roll(expr, src))
			}
			return nil
		},
	}
	roll.Flags().Uint64Var(&seed, "seed", 0, "seed for a reproducible sequence (0 = random)")
	roll.Flags().IntVarP(&times, "times", "n", 1, "number of rolls")
	cmd.AddCommand(roll)
	return cmd
}

func cmdBattle(configFile *string) *cobra.Command {
	var seed uint64
	var level int
	var maxTurns int
	var cmd = &cobra.Command{
		Use:   "battle",
		Short: "battle commands",
	}
	simulate := &cobra.Command{
		Use:          "simulate <monster-id>",
		Short:        "fight a monster with basic attacks against an in-memory store",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := loadContent(*configFile)
			if err != nil {
				return err
			}
			snap, ok := ct.catalog.Spawn(args[0])
			if !ok {
				return fmt.Errorf("no monster %q", args[0])
			}
			logger, err := observability.NewLogger(config.LoggingConfig{Level: "warn", Format: "console"}, "wayctl")
			if err != nil {
				return err
			}
			res, err := simulateBattle(cmd.Context(), ct, snap, seed, level, maxTurns, logger)
			if err != nil {
				return err
			}
			for _, e := range res.Log {
				fmt.Printf("[%2d] %-7s %s\n", e.Turn, e.Actor, e.Message)
			}
			fmt.Printf("result: %s after %d turns\n", res.State, res.Turn)
			return nil
		},
	}
	simulate.Flags().Uint64Var(&seed, "seed", 1, "dice seed")
	simulate.Flags().IntVar(&level, "level", 1, "player level")
	simulate.Flags().IntVar(&maxTurns, "max-turns", 100, "give up after this many turns")
	cmd.AddCommand(simulate)
	return cmd
}

func simulateBattle(ctx context.Context, ct *content, m monster.Snapshot, seed uint64, level, maxTurns int, logger *zap.Logger) (battle.Result, error) {
	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	if err != nil {
		return battle.Result{}, err
	}
	defer func() { _ = db.Close() }()

	players := sqlite.NewPlayerRepository(db)
	p := player.New(1, "Simulant", ct.cfg.Game.StartLocation)
	growth := gameserver.BalanceFromConfig(ct.cfg).Growth
	if level > 1 {
		p.GainExperience(growth.ExperiencePerLevel*(level-1), growth)
	}
	if err := players.Create(ctx, p); err != nil {
		return battle.Result{}, err
	}
	eng := battle.NewEngine(sqlite.NewBattleRepository(db), players, ct.skills, dice.NewSeededSource(seed),
		gameserver.BalanceFromConfig(ct.cfg), logger)
	res, err := eng.Start(ctx, p, m)
	if err != nil {
		return battle.Result{}, err
	}
	for !res.State.Terminal() && res.Turn <= maxTurns {
		if res, err = eng.Attack(ctx, p.UserID); err != nil {
			return battle.Result{}, err
		}
	}
	return res, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
