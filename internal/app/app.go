// Package app wires the bot together: config, logging, storage, the Discord
// adapter, and the periodic jobs, all running under one supervisor.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"wosbot/internal/codes"
	"wosbot/internal/config"
	"wosbot/internal/discord"
	"wosbot/internal/gate"
	"wosbot/internal/registry"
	"wosbot/internal/reminder"
	"wosbot/internal/sched"
	"wosbot/internal/settings"
	"wosbot/internal/storage"
	"wosbot/internal/supervisor"
	"wosbot/internal/wos"
	"wosbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store    *storage.Store
	settings *settings.Settings
	registry *registry.Registry
	gate     *gate.Gate

	adapter   *discord.Adapter
	runner    *sched.Runner
	watcher   *codes.Watcher
	reminders *reminder.Service

	stopOnce sync.Once
	stopped  chan struct{}
}

type intervals struct {
	codes     time.Duration
	reminders time.Duration
	nickSync  time.Duration
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if _, err := parseIntervals(cfg); err != nil {
		return nil, err
	}

	// logx.New applies the config immediately. The Discord sink has no
	// sender yet, so bootstrap with it disabled and re-Apply once the
	// adapter exists.
	bootCfg := mapLogConfig(cfg)
	bootCfg.Discord.Enabled = false
	logSvc, log := logx.New(bootCfg, nil)
	log = log.With(logx.String("comp", "app"))

	dataDir := cfg.Data.Dir
	if dataDir == "" {
		dataDir = "data"
	}
	store := storage.New(dataDir, log.With(logx.String("comp", "storage")))
	sets := settings.Load(store)

	client := wos.NewClient(log.With(logx.String("comp", "wos")))
	scraper := wos.NewScraper(log.With(logx.String("comp", "wos")))
	reg := registry.Load(client, store, log.With(logx.String("comp", "registry")))

	adapter, err := discord.New(cfg.Discord.Token, cfg.Discord.GuildID,
		log.With(logx.String("comp", "discord")))
	if err != nil {
		return nil, err
	}
	logSvc.SetSender(adapter)
	logSvc.Apply(mapLogConfig(cfg))

	a := &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		store:    store,
		settings: sets,
		registry: reg,
		adapter:  adapter,
		stopped:  make(chan struct{}),
	}

	a.gate = gate.New(adapter, sets, log.With(logx.String("comp", "gate")))
	iv, _ := parseIntervals(cfg)
	a.reminders = reminder.NewService(adapter, iv.reminders, log.With(logx.String("comp", "reminder")))
	a.watcher = codes.NewWatcher(scraper, client, adapter, sets, reg, store,
		cfg.Codes.AutoRedeem, log.With(logx.String("comp", "codes")))
	a.runner = sched.NewRunner(log.With(logx.String("comp", "sched")))

	adapter.Bind(discord.Deps{
		Gate:      a.gate,
		Settings:  sets,
		Registry:  reg,
		Reminders: a.reminders,
		Codes:     scraper,
		Shutdown:  a.RequestShutdown,
	})

	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		if strings.TrimSpace(c.Discord.Token) == "" {
			return fmt.Errorf("discord.token is required (file or WOSBOT_TOKEN)")
		}
		_, err := parseIntervals(c)
		return err
	})
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, a.log)

	a.sup.Go("gate", a.gate.Run)

	if err := a.adapter.Open(a.sup.Context()); err != nil {
		a.sup.Cancel()
		return err
	}

	cfg := a.cfgm.Get()
	iv, err := parseIntervals(cfg)
	if err != nil {
		return err
	}
	if err := a.scheduleJobs(iv, cfg.NickSync.Enabled); err != nil {
		return err
	}
	// Jobs start only once the gateway is up, so the first ticks have a
	// session to announce through.
	a.runner.Start(a.sup.Context())

	a.sup.GoRestart("config.watch", a.cfgm.Watch)
	a.sup.Go("config.apply", a.applyLoop)

	a.log.Info("bot started")
	return nil
}

func (a *App) scheduleJobs(iv intervals, nickSync bool) error {
	if err := a.runner.Add("codes.watch", iv.codes, a.watcher.Tick); err != nil {
		return err
	}
	if err := a.runner.Add("reminders.tick", iv.reminders, a.reminders.Tick); err != nil {
		return err
	}
	if nickSync {
		return a.runner.Add("nick.sync", iv.nickSync, func(ctx context.Context) error {
			a.registry.SyncDisplayNames(ctx, a.adapter)
			return nil
		})
	}
	a.runner.Remove("nick.sync")
	return nil
}

// applyLoop reacts to validated config reloads. The gateway token and guild
// cannot change at runtime; everything else can.
func (a *App) applyLoop(ctx context.Context) error {
	ch := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(ch)
	prev := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cfg, ok := <-ch:
			if !ok {
				return nil
			}
			a.logs.Apply(mapLogConfig(cfg))
			a.watcher.SetAutoRedeem(cfg.Codes.AutoRedeem)
			iv, err := parseIntervals(cfg)
			if err == nil {
				err = a.scheduleJobs(iv, cfg.NickSync.Enabled)
			}
			if err != nil {
				a.log.Warn("config apply failed", logx.Err(err))
				continue
			}
			_, attrs := config.SummarizeConfigChange(prev, cfg)
			a.log.Info("config applied", attrs...)
			prev = cfg
		}
	}
}

// Done is closed after Stop, or when /shutdown asks the process to exit.
func (a *App) Done() <-chan struct{} { return a.stopped }

// RequestShutdown is the /shutdown path: it closes Done so main falls
// through to Stop.
func (a *App) RequestShutdown() {
	a.stopOnce.Do(func() { close(a.stopped) })
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Stop shuts everything down in reverse start order: jobs first so nothing
// new is announced, then the gateway, then the background goroutines, then
// the log sinks.
func (a *App) Stop(ctx context.Context) error {
	a.RequestShutdown()
	a.runner.Stop()
	if err := a.adapter.Close(); err != nil {
		a.log.Warn("gateway close failed", logx.Err(err))
	}
	err := a.sup.Stop(ctx)
	_ = a.logs.Close()
	return err
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Discord: logx.DiscordConfig{
			Enabled:    cfg.Logging.Discord.Enabled,
			ChannelID:  cfg.Logging.Discord.ChannelID,
			MinLevel:   cfg.Logging.Discord.MinLevel,
			RatePerSec: cfg.Logging.Discord.RatePerSec,
		},
	}
}

func parseIntervals(cfg *config.Config) (intervals, error) {
	var iv intervals
	var err error
	if iv.codes, err = config.ParseDurationOrDefault("codes.check_interval", cfg.Codes.CheckInterval, 15*time.Minute); err != nil {
		return iv, err
	}
	if iv.reminders, err = config.ParseDurationOrDefault("reminders.tick_interval", cfg.Reminders.TickInterval, 30*time.Second); err != nil {
		return iv, err
	}
	if iv.nickSync, err = config.ParseDurationOrDefault("nick_sync.interval", cfg.NickSync.Interval, time.Hour); err != nil {
		return iv, err
	}
	return iv, nil
}
