// Package app wires the release bot together: storage, conversation
// registry, flows, broadcast and the update feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/app/broadcast"
	appconfig "github.com/m3rciful/releasebot/app/config"
	"github.com/m3rciful/releasebot/app/conversation"
	"github.com/m3rciful/releasebot/app/flows"
	"github.com/m3rciful/releasebot/app/metrics"
	"github.com/m3rciful/releasebot/app/roles"
	"github.com/m3rciful/releasebot/app/server"
	"github.com/m3rciful/releasebot/app/store"
	"github.com/m3rciful/releasebot/core/bootstrap"
	"github.com/m3rciful/releasebot/core/cmd"
	"github.com/m3rciful/releasebot/core/lanes"
	"github.com/m3rciful/releasebot/core/logger"
	"github.com/m3rciful/releasebot/core/telegram"
	"github.com/m3rciful/releasebot/core/telegram/sender"
	"github.com/m3rciful/releasebot/core/telegram/update"
)

const (
	component    = "app"
	closeTimeout = 15 * time.Second
)

// App is the running bot.
type App struct {
	cfg    *appconfig.AppConfig
	infra  *bootstrap.Result
	redis  *redis.Client
	bot    *tele.Bot
	menu   *telegram.CommandMenu
	lanes  *lanes.Pool
	sender *sender.Dispatcher
	disp   *conversation.Dispatcher
	server *server.Server
	checks map[string]func(context.Context) error
}

// LoadConfig adapts appconfig.Load to the process runner.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	cfg, err := appconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap brings up infrastructure and builds the bot. On failure
// everything opened so far is closed again.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.App, error) {
	cfg, ok := carrier.(*appconfig.AppConfig)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, infra: infra}
	if err := a.build(ctx); err != nil {
		if cerr := a.Close(); cerr != nil {
			logger.Warn(ctx, component, "bootstrap.cleanup", slog.String("err", cerr.Error()))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg
	st := store.New(a.infra.DB)
	a.checks = map[string]func(context.Context) error{"database": st.Ping}

	registry, err := a.openRegistry(ctx)
	if err != nil {
		return err
	}

	a.bot, err = telegram.NewBot(&cfg.Config, false)
	if err != nil {
		return err
	}
	out := telegram.NewMessenger(a.bot)

	a.sender = sender.NewDispatcher(cfg.Sender)
	emitter := broadcast.New(broadcast.Options{
		Users: st,
		Out:   out,
		Queue: a.sender,
		Pace:  cfg.Broadcast.Pace(),
	})

	set, err := flows.New(flows.Deps{
		Store:     st,
		Roles:     roles.NewResolver(cfg.Telegram.AdminID, st),
		Messenger: out,
		Broadcast: emitter,
	})
	if err != nil {
		return err
	}

	a.lanes = lanes.New(lanes.Options{
		QueueSize:   cfg.Inbound.QueueSize,
		IdleTimeout: cfg.Inbound.IdleTimeout(),
		MaxActive:   cfg.Inbound.MaxActive,
	})
	mws := telegram.DefaultMiddlewares(&cfg.Config, onRateLimited)
	mws = append(mws, metrics.Updates)
	a.disp, err = conversation.NewDispatcher(conversation.Options{
		Registry:    registry,
		Lanes:       a.lanes,
		Entries:     set.EntryPoints(),
		Flows:       set.Flows(),
		Middlewares: mws,
		OnError:     set.OnError,
	})
	if err != nil {
		return err
	}

	a.menu = telegram.NewCommandMenu()
	for _, c := range flows.Commands() {
		if err := a.menu.Register(c); err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}

	metrics.MustRegister()
	if err := metrics.RegisterRuntime(prometheus.DefaultRegisterer, a.lanes.Active, a.sender.Pending); err != nil {
		return fmt.Errorf("app: runtime metrics: %w", err)
	}

	a.server = server.New(server.Options{
		Addr:        cfg.Webhook.Addr(),
		WebhookPath: cfg.Webhook.Path,
		Secret:      cfg.Webhook.SecretToken,
		Dispatcher:  a.disp,
		Checks:      a.checks,
	})
	logger.Info(ctx, component, "wired",
		slog.String("status", "ok"),
		slog.String("registry", cfg.Registry.Backend),
		slog.String("mode", cfg.Telegram.RunMode),
	)
	return nil
}

func (a *App) openRegistry(ctx context.Context) (conversation.Registry, error) {
	if a.cfg.Registry.Backend != appconfig.RegistryRedis {
		return conversation.NewMemoryRegistry(), nil
	}
	rc := a.cfg.Redis
	client, err := conversation.DialRedis(ctx, rc.Addr, rc.Password, rc.DB)
	if err != nil {
		return nil, fmt.Errorf("app: registry: %w", err)
	}
	a.redis = client
	reg := conversation.NewRedisRegistry(client, a.cfg.Registry.TTL)
	a.checks["registry"] = reg.Ping
	return reg, nil
}

func onRateLimited(context.Context, update.Event) error {
	metrics.IncRateLimited()
	return nil
}

// Run serves HTTP and feeds updates until ctx ends or either side fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() {
		errc <- a.server.Run(ctx)
	}()
	go func() {
		errc <- telegram.Run(ctx, telegram.RunOptions{
			Config:  &a.cfg.Config,
			Bot:     a.bot,
			Menu:    a.menu,
			Secret:  a.cfg.Webhook.SecretToken,
			Sink:    a.sink(ctx),
			OnReady: a.server.SetReady,
		})
	}()

	first := <-errc
	cancel()
	second := <-errc
	return errors.Join(first, second)
}

// sink feeds long-poll updates through the same path as the webhook.
func (a *App) sink(ctx context.Context) func(tele.Update) {
	return func(u tele.Update) {
		ev, status := server.Deliver(ctx, a.disp, u)
		if status != "accepted" {
			logger.Debug(ev.Context(ctx), component, "longpoll.drop", slog.String("status", status))
		}
	}
}

// Close drains queued work and releases connections.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var errs []error
	if a.lanes != nil {
		if err := a.lanes.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("lanes: %w", err))
		}
	}
	if a.sender != nil {
		a.sender.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := a.infra.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
