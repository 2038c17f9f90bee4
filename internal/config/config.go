package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Port       int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit" validate:"gte=512"`
	PingPeriod time.Duration `mapstructure:"ping_period" validate:"gt=0"`
	Secret     string        `mapstructure:"secret"`
	TickRate   time.Duration `mapstructure:"tick_rate" validate:"gt=0"`

	Rooms     RoomConfig      `mapstructure:"rooms"`
	Party     PartyConfig     `mapstructure:"party"`
	Teams     TeamConfig      `mapstructure:"teams"`
	Votes     VoteConfig      `mapstructure:"votes"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RoomConfig struct {
	MaxRooms          int `mapstructure:"max_rooms" validate:"gte=1"`
	DefaultMaxPlayers int `mapstructure:"default_max_players" validate:"gte=1,ltefield=MaxPlayers"`
	MaxPlayers        int `mapstructure:"max_players" validate:"gte=1"`
	MaxNameLength     int `mapstructure:"max_name_length" validate:"gte=1"`
	// ReconnectGrace holds a slot for a disconnected member; zero disables it.
	ReconnectGrace      time.Duration `mapstructure:"reconnect_grace" validate:"gte=0"`
	AllowJoinInProgress bool          `mapstructure:"allow_join_in_progress"`
	MinPlayersToStart   int           `mapstructure:"min_players_to_start" validate:"gte=1"`
	StartCountdown      time.Duration `mapstructure:"start_countdown" validate:"gte=0"`
	EndedLinger         time.Duration `mapstructure:"ended_linger" validate:"gte=0"`
	ReturnToLobby       bool          `mapstructure:"return_to_lobby"`
	// ServerRooms are created at startup and never auto-removed.
	ServerRooms []ServerRoom `mapstructure:"server_rooms" validate:"dive"`
}

type ServerRoom struct {
	Name       string `mapstructure:"name" validate:"required"`
	MaxPlayers int    `mapstructure:"max_players" validate:"gte=0"`
}

type PartyConfig struct {
	DefaultMaxSize         int           `mapstructure:"default_max_size" validate:"gte=1,ltefield=MaxSize"`
	MaxSize                int           `mapstructure:"max_size" validate:"gte=1"`
	MaxNameLength          int           `mapstructure:"max_name_length" validate:"gte=1"`
	InviteTimeout          time.Duration `mapstructure:"invite_timeout" validate:"gt=0"`
	InviteSweepInterval    time.Duration `mapstructure:"invite_sweep_interval" validate:"gt=0"`
	AutoTransferLeadership bool          `mapstructure:"auto_transfer_leadership"`
}

type TeamConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	TeamCount     int      `mapstructure:"team_count" validate:"gte=1"`
	MaxTeamSize   int      `mapstructure:"max_team_size" validate:"gte=0"`
	FormationMode string   `mapstructure:"formation_mode" validate:"oneof=manual auto captain skill"`
	AllowSwap     bool     `mapstructure:"allow_swap"`
	Names         []string `mapstructure:"names"`
	Colors        []string `mapstructure:"colors"`
	// PartyBias keeps party members together when the strategy can.
	PartyBias bool `mapstructure:"party_bias"`
}

type VoteConfig struct {
	Enabled                  bool          `mapstructure:"enabled"`
	DefaultDuration          time.Duration `mapstructure:"default_duration" validate:"gt=0"`
	MinParticipation         float64       `mapstructure:"min_participation" validate:"gte=0,lte=1"`
	WinningThreshold         float64       `mapstructure:"winning_threshold" validate:"gte=0,lte=1"`
	DefaultCooldown          time.Duration `mapstructure:"default_cooldown" validate:"gte=0"`
	FailedCooldownMultiplier float64       `mapstructure:"failed_cooldown_multiplier" validate:"gte=1"`
	TieResolution            string        `mapstructure:"tie_resolution" validate:"oneof=fail first_option last_option random initiator_choice"`
	MapPool                  []string      `mapstructure:"map_pool"`
	HistorySize              int           `mapstructure:"history_size" validate:"gte=0"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"gte=1"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
	Chat     int           `mapstructure:"chat" validate:"gte=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("tick_rate", "50ms")

	v.SetDefault("rooms.max_rooms", 256)
	v.SetDefault("rooms.default_max_players", 8)
	v.SetDefault("rooms.max_players", 64)
	v.SetDefault("rooms.max_name_length", 36)
	v.SetDefault("rooms.reconnect_grace", "0s")
	v.SetDefault("rooms.allow_join_in_progress", false)
	v.SetDefault("rooms.min_players_to_start", 2)
	v.SetDefault("rooms.start_countdown", "10s")
	v.SetDefault("rooms.ended_linger", "15s")
	v.SetDefault("rooms.return_to_lobby", true)

	v.SetDefault("party.default_max_size", 4)
	v.SetDefault("party.max_size", 8)
	v.SetDefault("party.max_name_length", 32)
	v.SetDefault("party.invite_timeout", "60s")
	v.SetDefault("party.invite_sweep_interval", "10s")
	v.SetDefault("party.auto_transfer_leadership", true)

	v.SetDefault("teams.enabled", true)
	v.SetDefault("teams.team_count", 2)
	v.SetDefault("teams.max_team_size", 0)
	v.SetDefault("teams.formation_mode", "auto")
	v.SetDefault("teams.allow_swap", true)
	v.SetDefault("teams.names", []string{"Red", "Blue", "Green", "Yellow"})
	v.SetDefault("teams.colors", []string{"#e53935", "#1e88e5", "#43a047", "#fdd835"})
	v.SetDefault("teams.party_bias", true)

	v.SetDefault("votes.enabled", true)
	v.SetDefault("votes.default_duration", "30s")
	v.SetDefault("votes.min_participation", 0.5)
	v.SetDefault("votes.winning_threshold", 0.51)
	v.SetDefault("votes.default_cooldown", "60s")
	v.SetDefault("votes.failed_cooldown_multiplier", 2.0)
	v.SetDefault("votes.tie_resolution", "fail")
	v.SetDefault("votes.map_pool", []string{"arena", "canyon", "harbor"})
	v.SetDefault("votes.history_size", 16)

	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.interval", "1s")
	v.SetDefault("rate_limit.chat", 5)
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LOBBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("formation", cfg.Teams.FormationMode).
		Msg("config ready")
	return cfg, nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and returns every violation joined.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed %q (%v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}
