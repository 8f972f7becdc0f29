package config

import (
	"sort"
	"strings"

	"wosbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (the bot token) are never included,
// only whether one is set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if (strings.TrimSpace(oldCfg.Discord.Token) != "") != (strings.TrimSpace(newCfg.Discord.Token) != "") ||
		strings.TrimSpace(oldCfg.Discord.GuildID) != strings.TrimSpace(newCfg.Discord.GuildID) {
		changed = append(changed, "discord")
		attrs = append(attrs,
			logx.Bool("discord.token_set", strings.TrimSpace(newCfg.Discord.Token) != ""),
			logx.Bool("discord.guild_scoped", strings.TrimSpace(newCfg.Discord.GuildID) != ""),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.discord_enabled", newCfg.Logging.Discord.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Data.Dir) != strings.TrimSpace(newCfg.Data.Dir) {
		changed = append(changed, "data")
	}

	if oldCfg.Codes != newCfg.Codes {
		changed = append(changed, "codes")
		attrs = append(attrs,
			logx.String("codes.check_interval", newCfg.Codes.CheckInterval),
			logx.Bool("codes.auto_redeem", newCfg.Codes.AutoRedeem),
		)
	}

	if oldCfg.Reminders != newCfg.Reminders {
		changed = append(changed, "reminders")
	}

	if oldCfg.NickSync != newCfg.NickSync {
		changed = append(changed, "nick_sync")
	}

	sort.Strings(changed)
	return changed, attrs
}
