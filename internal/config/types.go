package config

// Config is the process configuration loaded from the config file
// (JSON or YAML; YAML is coerced to JSON for strict decoding).
//
// All durations are Go duration strings (e.g. "30s", "15m", "1h").
//
// Runtime state (alert channel, admin set, registered players) does NOT live
// here; it is owned by the components and persisted as JSON documents under
// data.dir.
type Config struct {
	Discord   DiscordConfig   `json:"discord"`
	Logging   LoggingConfig   `json:"logging"`
	Data      DataConfig      `json:"data"`
	Codes     CodesConfig     `json:"codes"`
	Reminders RemindersConfig `json:"reminders"`
	NickSync  NickSyncConfig  `json:"nick_sync"`
}

type DiscordConfig struct {
	// Token may be left empty in the file and provided via the WOSBOT_TOKEN
	// environment variable (a .env file is honored too).
	Token string `json:"token"`

	// GuildID, when set, registers slash commands against that guild only.
	// Guild-scoped commands propagate instantly; global ones can take up to
	// an hour.
	GuildID string `json:"guild_id,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Discord LoggingDiscord `json:"discord"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingDiscord mirrors the console/file sinks into a Discord channel,
// min-level filtered and rate limited so a log storm can't flood the guild.
type LoggingDiscord struct {
	Enabled    bool   `json:"enabled"`
	ChannelID  string `json:"channel_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type DataConfig struct {
	// Dir is where the JSON documents (users, settings, last_codes) live.
	Dir string `json:"dir"`
}

// CodesConfig controls the gift-code watcher.
type CodesConfig struct {
	// CheckInterval defaults to "15m".
	CheckInterval string `json:"check_interval,omitempty"`

	// AutoRedeem enables redemption attempts for every registered player
	// whenever new codes appear. Attempts are reported per user; the redeem
	// endpoint itself is captcha-protected, so outcomes are informational.
	AutoRedeem bool `json:"auto_redeem,omitempty"`
}

type RemindersConfig struct {
	// TickInterval defaults to "30s". Reminders due within one tick are
	// delivered with sub-tick precision by sleeping the residual delay.
	TickInterval string `json:"tick_interval,omitempty"`
}

type NickSyncConfig struct {
	Enabled bool `json:"enabled"`
	// Interval defaults to "1h".
	Interval string `json:"interval,omitempty"`
}
