// Package config loads the configuration surface enumerated in spec.md
// §6, following the teacher corpus's viper+pflag pattern: typed defaults,
// optional config file, environment overrides, all unmarshaled into one
// struct via mapstructure tags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`

	Backend    BackendConfig    `mapstructure:"backend"`
	Filters    FiltersConfig    `mapstructure:"filters"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Cache      CacheConfig      `mapstructure:"cache"`
	TokenStore TokenStoreConfig `mapstructure:"token_store"`

	// Templates maps a render key (e.g. "twitch_bits_no_message") to a
	// fasttemplate string using "{placeholder}" syntax (spec.md §4.1).
	Templates map[string]string `mapstructure:"templates"`
}

// BackendConfig describes how to reach the TTS Backend (spec.md §4.3).
type BackendConfig struct {
	Addr           string `mapstructure:"addr"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// FiltersConfig controls the Event Processor's enable/threshold/mask
// stages (spec.md §4.1 steps 1, 2, 4).
type FiltersConfig struct {
	Enabled                map[string]bool `mapstructure:"enabled"`
	MinBits                int             `mapstructure:"min_bits"`
	MinGifts               int             `mapstructure:"min_gifts"`
	MinCents               int             `mapstructure:"min_cents"`
	ChannelPointsAllowlist []string        `mapstructure:"channel_points_allowlist"`
	ProfanityMaskEnabled   bool            `mapstructure:"profanity_mask_enabled"`
	ProfanityWords         []string        `mapstructure:"profanity_words"`
}

// RateLimitConfig configures the per-platform sliding-window limiter
// (spec.md §4.5).
type RateLimitConfig struct {
	PerMinuteTwitch  int `mapstructure:"per_minute_twitch"`
	PerMinuteYouTube int `mapstructure:"per_minute_youtube"`
	WindowSeconds    int `mapstructure:"window_seconds"`
}

// QueueConfig bounds the priority queue (spec.md §4.4).
type QueueConfig struct {
	Bound int `mapstructure:"bound"`
}

// DedupConfig configures the duplicate detector's window (spec.md §4.6).
type DedupConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
}

// TTSConfig configures synthesis defaults (spec.md §4.2/§6).
type TTSConfig struct {
	Voice     string  `mapstructure:"voice"`
	Speed     float64 `mapstructure:"speed"`
	MaxLength int     `mapstructure:"max_length"`
}

// CacheConfig configures the on-disk audio cache (spec.md §4.2/§6).
type CacheConfig struct {
	Dir                    string `mapstructure:"dir"`
	MaxSizeMB              int    `mapstructure:"max_size_mb"`
	TTLHours               int    `mapstructure:"ttl_hours"`
	MaintenanceIntervalSec int    `mapstructure:"maintenance_interval_seconds"`
}

// TokenStoreConfig configures the default SQLite-backed Token Store.
type TokenStoreConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// Default returns the baseline configuration. Individual fields are
// overridden by flags, environment variables, and config file in that
// precedence order (viper's default precedence).
func Default() Config {
	return Config{
		ListenAddr: ":8089",
		LogLevel:   "info",
		Backend: BackendConfig{
			Addr:           "127.0.0.1:9000",
			TimeoutSeconds: 30,
		},
		Filters: FiltersConfig{
			Enabled: map[string]bool{
				"twitch_bits":                  true,
				"twitch_sub_new":               true,
				"twitch_sub_resub":             true,
				"twitch_gift_single":           true,
				"twitch_gift_multi":            true,
				"twitch_channel_points":        true,
				"youtube_superchat":            true,
				"youtube_supersticker":         true,
				"youtube_membership_new":       true,
				"youtube_membership_milestone": true,
			},
			MinBits:                1,
			MinGifts:               1,
			MinCents:               0,
			ChannelPointsAllowlist: nil,
			ProfanityMaskEnabled:   true,
			ProfanityWords:         []string{},
		},
		RateLimit: RateLimitConfig{
			PerMinuteTwitch:  30,
			PerMinuteYouTube: 30,
			WindowSeconds:    60,
		},
		Queue: QueueConfig{Bound: 50},
		Dedup: DedupConfig{WindowSeconds: 5},
		TTS: TTSConfig{
			Voice:     "default",
			Speed:     1.0,
			MaxLength: 300,
		},
		Cache: CacheConfig{
			Dir:                    "cache",
			MaxSizeMB:              256,
			TTLHours:               24,
			MaintenanceIntervalSec: 300,
		},
		TokenStore: TokenStoreConfig{DBPath: "alertvoice.db"},
		Templates: map[string]string{
			"twitch_bits":                        "{username} cheered {amount} bits! {message}",
			"twitch_bits_no_message":              "{username} cheered {amount} bits!",
			"twitch_sub_new":                      "{username} subscribed at tier {tier}!",
			"twitch_sub_resub":                    "{username} resubscribed at tier {tier} for {months} months! {message}",
			"twitch_sub_resub_no_message":          "{username} resubscribed at tier {tier} for {months} months!",
			"twitch_gift_single":                   "{username} gifted a tier {tier} sub to {recipient}!",
			"twitch_gift_multi":                    "{username} gifted {count} tier {tier} subs!",
			"twitch_channel_points":                "{username} redeemed {reward_name}! {user_input}",
			"twitch_channel_points_no_message":      "{username} redeemed {reward_name}!",
			"youtube_superchat":                    "{username} sent a ${amount} superchat! {message}",
			"youtube_superchat_no_message":          "{username} sent a ${amount} superchat!",
			"youtube_supersticker":                 "{username} sent a ${amount} super sticker!",
			"youtube_membership_new":               "{username} became a {level} member!",
			"youtube_membership_milestone":         "{username} has been a {level} member for {months} months!",
		},
	}
}

// flagBinder is the subset of *cobra.Command (or *pflag.FlagSet owners)
// needed to bind flags into viper, matching the teacher's LoadOptions
// shape.
type flagBinder interface {
	Flags() *pflag.FlagSet
}

// LoadOptions controls Load.
type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

// RegisterFlags registers the subset of Config exposed as CLI flags.
// Less-common settings (templates map, profanity wordlist) are
// config-file/env only to keep the flag surface usable.
func RegisterFlags(fs *pflag.FlagSet, d Config) {
	fs.String("listen-addr", d.ListenAddr, "HTTP/WS listen address")
	fs.String("log-level", d.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("backend-addr", d.Backend.Addr, "TTS backend TCP address")
	fs.Int("min-bits", d.Filters.MinBits, "Minimum bits to trigger an alert")
	fs.Int("min-gifts", d.Filters.MinGifts, "Minimum gift count to trigger an alert")
	fs.Int("min-cents", d.Filters.MinCents, "Minimum superchat/supersticker amount in cents")
	fs.Int("rate-limit-twitch", d.RateLimit.PerMinuteTwitch, "Max Twitch alerts per window")
	fs.Int("rate-limit-youtube", d.RateLimit.PerMinuteYouTube, "Max YouTube alerts per window")
	fs.Int("queue-bound", d.Queue.Bound, "Maximum queued messages")
	fs.Int("dedup-window-seconds", d.Dedup.WindowSeconds, "Duplicate-suppression window in seconds")
	fs.String("tts-voice", d.TTS.Voice, "TTS voice name")
	fs.Float64("tts-speed", d.TTS.Speed, "TTS speed multiplier")
	fs.Int("tts-max-length", d.TTS.MaxLength, "Maximum characters sent to the TTS backend")
	fs.String("cache-dir", d.Cache.Dir, "Audio cache directory")
	fs.Int("cache-max-size-mb", d.Cache.MaxSizeMB, "Audio cache size cap in megabytes")
	fs.Int("cache-ttl-hours", d.Cache.TTLHours, "Audio cache artifact TTL in hours")
	fs.String("token-db", d.TokenStore.DBPath, "SQLite path for the token store")
}

// Load builds a Config from defaults, an optional config file, the
// process environment (ALERTVOICE_ prefix), and bound CLI flags, in
// ascending precedence.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v, opts.Defaults)

	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("ALERTVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("alertvoice")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range configuration at startup (ConfigError in
// spec.md §7 — fatal, not a per-event rejection).
func (c Config) Validate() error {
	if c.Queue.Bound <= 0 {
		return fmt.Errorf("queue.bound must be positive")
	}
	if c.Dedup.WindowSeconds <= 0 {
		return fmt.Errorf("dedup.window_seconds must be positive")
	}
	if c.Cache.MaxSizeMB <= 0 {
		return fmt.Errorf("cache.max_size_mb must be positive")
	}
	if c.TTS.MaxLength <= 0 {
		return fmt.Errorf("tts.max_length must be positive")
	}
	for key := range requiredTemplateKeys {
		if _, ok := c.Templates[key]; !ok {
			return fmt.Errorf("templates: missing required key %q", key)
		}
	}
	return nil
}

var requiredTemplateKeys = map[string]struct{}{
	"twitch_bits_no_message": {},
	"youtube_superchat":      {},
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("listen_addr", c.ListenAddr)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("backend.addr", c.Backend.Addr)
	v.SetDefault("backend.timeout_seconds", c.Backend.TimeoutSeconds)
	v.SetDefault("filters.enabled", c.Filters.Enabled)
	v.SetDefault("filters.min_bits", c.Filters.MinBits)
	v.SetDefault("filters.min_gifts", c.Filters.MinGifts)
	v.SetDefault("filters.min_cents", c.Filters.MinCents)
	v.SetDefault("filters.channel_points_allowlist", c.Filters.ChannelPointsAllowlist)
	v.SetDefault("filters.profanity_mask_enabled", c.Filters.ProfanityMaskEnabled)
	v.SetDefault("filters.profanity_words", c.Filters.ProfanityWords)
	v.SetDefault("rate_limit.per_minute_twitch", c.RateLimit.PerMinuteTwitch)
	v.SetDefault("rate_limit.per_minute_youtube", c.RateLimit.PerMinuteYouTube)
	v.SetDefault("rate_limit.window_seconds", c.RateLimit.WindowSeconds)
	v.SetDefault("queue.bound", c.Queue.Bound)
	v.SetDefault("dedup.window_seconds", c.Dedup.WindowSeconds)
	v.SetDefault("tts.voice", c.TTS.Voice)
	v.SetDefault("tts.speed", c.TTS.Speed)
	v.SetDefault("tts.max_length", c.TTS.MaxLength)
	v.SetDefault("cache.dir", c.Cache.Dir)
	v.SetDefault("cache.max_size_mb", c.Cache.MaxSizeMB)
	v.SetDefault("cache.ttl_hours", c.Cache.TTLHours)
	v.SetDefault("cache.maintenance_interval_seconds", c.Cache.MaintenanceIntervalSec)
	v.SetDefault("token_store.db_path", c.TokenStore.DBPath)
	v.SetDefault("templates", c.Templates)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("listen_addr", "listen-addr")
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("backend.addr", "backend-addr")
	v.RegisterAlias("filters.min_bits", "min-bits")
	v.RegisterAlias("filters.min_gifts", "min-gifts")
	v.RegisterAlias("filters.min_cents", "min-cents")
	v.RegisterAlias("rate_limit.per_minute_twitch", "rate-limit-twitch")
	v.RegisterAlias("rate_limit.per_minute_youtube", "rate-limit-youtube")
	v.RegisterAlias("queue.bound", "queue-bound")
	v.RegisterAlias("dedup.window_seconds", "dedup-window-seconds")
	v.RegisterAlias("tts.voice", "tts-voice")
	v.RegisterAlias("tts.speed", "tts-speed")
	v.RegisterAlias("tts.max_length", "tts-max-length")
	v.RegisterAlias("cache.dir", "cache-dir")
	v.RegisterAlias("cache.max_size_mb", "cache-max-size-mb")
	v.RegisterAlias("cache.ttl_hours", "cache-ttl-hours")
	v.RegisterAlias("token_store.db_path", "token-db")
}
