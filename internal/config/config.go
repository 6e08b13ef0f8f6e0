// Package config provides Viper-based configuration loading for the game server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name identifies this process in logs.
	Name string `mapstructure:"name"`
	// ShutdownTimeout bounds how long services get to stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`
	// SQLitePath is the database file for the sqlite driver; ":memory:" keeps it in memory.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds game server gRPC settings.
type GameServerConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// ContentConfig locates the YAML and Lua content the engine loads at startup.
type ContentConfig struct {
	LocationsDir string `mapstructure:"locations_dir"`
	MonstersDir  string `mapstructure:"monsters_dir"`
	SkillsDir    string `mapstructure:"skills_dir"`
	// ScriptsDir holds Lua skill scripts; empty disables scripted skills.
	ScriptsDir      string `mapstructure:"scripts_dir"`
	ScriptInstLimit int    `mapstructure:"script_instruction_limit"`
}

// MovementConfig tunes dice-driven movement.
type MovementConfig struct {
	// Dice is the movement roll expression, e.g. "3d6".
	Dice string `mapstructure:"dice"`
	// BonusDivisor turns agility into a flat movement bonus: agility / divisor.
	BonusDivisor int `mapstructure:"bonus_divisor"`
	// MaxSteps caps a single move request.
	MaxSteps int `mapstructure:"max_steps"`
	// EncountersInDungeons extends random encounters from roads to dungeons.
	EncountersInDungeons bool `mapstructure:"encounters_in_dungeons"`
}

// BattleConfig holds every battle balance constant.
type BattleConfig struct {
	HitBase               float64 `mapstructure:"hit_base"`
	HitPerPoint           float64 `mapstructure:"hit_per_point"`
	HitMin                float64 `mapstructure:"hit_min"`
	HitMax                float64 `mapstructure:"hit_max"`
	CritChance            float64 `mapstructure:"crit_chance"`
	CritMultiplier        float64 `mapstructure:"crit_multiplier"`
	DefendReduction       float64 `mapstructure:"defend_reduction"`
	EscapeBase            float64 `mapstructure:"escape_base"`
	EscapePerAgility      float64 `mapstructure:"escape_per_agility"`
	EscapeMin             float64 `mapstructure:"escape_min"`
	EscapeMax             float64 `mapstructure:"escape_max"`
	DefeatGoldLossPercent int     `mapstructure:"defeat_gold_loss_percent"`
	ExperiencePerLevel    int     `mapstructure:"experience_per_level"`
	LevelHP               int     `mapstructure:"level_hp"`
	LevelMP               int     `mapstructure:"level_mp"`
	LevelSP               int     `mapstructure:"level_sp"`
	LevelAttack           int     `mapstructure:"level_attack"`
	LevelDefense          int     `mapstructure:"level_defense"`
	LevelAgility          int     `mapstructure:"level_agility"`
}

// GameConfig holds world-level rules.
type GameConfig struct {
	// DefeatTown is where defeated players wake up.
	DefeatTown string `mapstructure:"defeat_town"`
	// StartLocation is the town new players start in.
	StartLocation string `mapstructure:"start_location"`
	// StarterSkills are granted to every new player.
	StarterSkills []string `mapstructure:"starter_skills"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Content    ContentConfig    `mapstructure:"content"`
	Movement   MovementConfig   `mapstructure:"movement"`
	Battle     BattleConfig     `mapstructure:"battle"`
	Game       GameConfig       `mapstructure:"game"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Driver == DriverPostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMovement(c.Movement); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Name == "" {
		return errors.New("server.name must not be empty")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", s.ShutdownTimeout)
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Driver {
	case DriverPostgres:
		return nil
	case DriverSQLite:
		if s.SQLitePath == "" {
			return errors.New("storage.sqlite_path must not be empty for the sqlite driver")
		}
		return nil
	default:
		return fmt.Errorf("storage.driver must be one of [postgres, sqlite], got %q", s.Driver)
	}
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.LocationsDir == "" {
		errs = append(errs, "content.locations_dir must not be empty")
	}
	if c.MonstersDir == "" {
		errs = append(errs, "content.monsters_dir must not be empty")
	}
	if c.SkillsDir == "" {
		errs = append(errs, "content.skills_dir must not be empty")
	}
	if c.ScriptInstLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMovement(m MovementConfig) error {
	var errs []string
	if m.Dice == "" {
		errs = append(errs, "movement.dice must not be empty")
	}
	if m.BonusDivisor < 1 {
		errs = append(errs, fmt.Sprintf("movement.bonus_divisor must be >= 1, got %d", m.BonusDivisor))
	}
	if m.MaxSteps < 1 {
		errs = append(errs, fmt.Sprintf("movement.max_steps must be >= 1, got %d", m.MaxSteps))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	probs := []struct {
		name string
		v    float64
	}{
		{"hit_base", b.HitBase}, {"hit_min", b.HitMin}, {"hit_max", b.HitMax},
		{"crit_chance", b.CritChance}, {"defend_reduction", b.DefendReduction},
		{"escape_base", b.EscapeBase}, {"escape_min", b.EscapeMin}, {"escape_max", b.EscapeMax},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 {
			errs = append(errs, fmt.Sprintf("battle.%s must be in [0,1], got %v", p.name, p.v))
		}
	}
	if b.HitMin > b.HitMax {
		errs = append(errs, "battle.hit_min must not exceed battle.hit_max")
	}
	if b.EscapeMin > b.EscapeMax {
		errs = append(errs, "battle.escape_min must not exceed battle.escape_max")
	}
	if b.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("battle.crit_multiplier must be >= 1, got %v", b.CritMultiplier))
	}
	if b.DefeatGoldLossPercent < 0 || b.DefeatGoldLossPercent > 100 {
		errs = append(errs, fmt.Sprintf("battle.defeat_gold_loss_percent must be 0-100, got %d", b.DefeatGoldLossPercent))
	}
	if b.ExperiencePerLevel < 1 {
		errs = append(errs, fmt.Sprintf("battle.experience_per_level must be >= 1, got %d", b.ExperiencePerLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.DefeatTown == "" {
		errs = append(errs, "game.defeat_town must not be empty")
	}
	if g.StartLocation == "" {
		errs = append(errs, "game.start_location must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and WAYFARER_ environment
// overrides applied, e.g. WAYFARER_STORAGE_DRIVER=sqlite.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WAYFARER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns the configuration produced by defaults alone.
func Defaults() (Config, error) {
	return LoadFromViper(NewViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "wayfarer")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wayfarer")
	v.SetDefault("database.password", "wayfarer")
	v.SetDefault("database.name", "wayfarer")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("storage.sqlite_path", "wayfarer.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)

	v.SetDefault("content.locations_dir", "content/locations")
	v.SetDefault("content.monsters_dir", "content/monsters")
	v.SetDefault("content.skills_dir", "content/skills")
	v.SetDefault("content.scripts_dir", "content/scripts/skills")
	v.SetDefault("content.script_instruction_limit", 100000)

	v.SetDefault("movement.dice", "3d6")
	v.SetDefault("movement.bonus_divisor", 10)
	v.SetDefault("movement.max_steps", 100)
	v.SetDefault("movement.encounters_in_dungeons", true)

	v.SetDefault("battle.hit_base", 0.85)
	v.SetDefault("battle.hit_per_point", 0.01)
	v.SetDefault("battle.hit_min", 0.10)
	v.SetDefault("battle.hit_max", 0.98)
	v.SetDefault("battle.crit_chance", 0.10)
	v.SetDefault("battle.crit_multiplier", 1.5)
	v.SetDefault("battle.defend_reduction", 0.5)
	v.SetDefault("battle.escape_base", 0.5)
	v.SetDefault("battle.escape_per_agility", 0.02)
	v.SetDefault("battle.escape_min", 0.10)
	v.SetDefault("battle.escape_max", 0.90)
	v.SetDefault("battle.defeat_gold_loss_percent", 10)
	v.SetDefault("battle.experience_per_level", 100)
	v.SetDefault("battle.level_hp", 10)
	v.SetDefault("battle.level_mp", 5)
	v.SetDefault("battle.level_sp", 5)
	v.SetDefault("battle.level_attack", 2)
	v.SetDefault("battle.level_defense", 1)
	v.SetDefault("battle.level_agility", 1)

	v.SetDefault("game.defeat_town", "starting_village")
	v.SetDefault("game.start_location", "starting_village")
	v.SetDefault("game.starter_skills", []string{})
}
