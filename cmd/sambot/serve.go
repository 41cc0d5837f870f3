package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/ucfagri/sambot/internal/bot"
	"github.com/ucfagri/sambot/internal/catalog"
	"github.com/ucfagri/sambot/internal/channel"
	"github.com/ucfagri/sambot/internal/channel/adapters/telegram"
	"github.com/ucfagri/sambot/internal/chat"
	"github.com/ucfagri/sambot/internal/config"
	"github.com/ucfagri/sambot/internal/entitlement"
	"github.com/ucfagri/sambot/internal/handlers"
	"github.com/ucfagri/sambot/internal/ledger"
	"github.com/ucfagri/sambot/internal/logger"
	"github.com/ucfagri/sambot/internal/media"
	"github.com/ucfagri/sambot/internal/server"
	"github.com/ucfagri/sambot/internal/session"
	"github.com/ucfagri/sambot/internal/tips"
	"github.com/ucfagri/sambot/internal/users"
	"github.com/ucfagri/sambot/internal/verify"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideCatalog,
			provideUsers,
			provideEntitlement,
			provideLedger,
			provideSessions,
			provideMedia,
			provideTelegram,
			provideSender,
			provideChatProvider,
			provideAssistant,
			provideVerifier,
			provideEngine,
			provideBroadcaster,
			providePingHandler,
			provideAuthHandler,
			provideUsersHandler,
			provideReceiptsHandler,
			provideServer,
		),
		fx.Invoke(
			startEngine,
			startChannel,
			startMaintenance,
			startTips,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideCatalog(log *slog.Logger, cfg *config.Config) (*catalog.Catalog, error) {
	return catalog.Load(log, cfg.Data.Dir)
}

func provideUsers(log *slog.Logger, cfg *config.Config) *users.Service {
	return users.NewService(log, cfg.Data.Dir)
}

func provideEntitlement(log *slog.Logger, userSvc *users.Service, cfg *config.Config) *entitlement.Service {
	return entitlement.NewService(log, userSvc, cfg.Premium.DurationMonths)
}

func provideLedger(log *slog.Logger, cfg *config.Config) *ledger.Service {
	return ledger.NewService(log, cfg.Data.Dir)
}

func provideSessions(log *slog.Logger) *session.Store {
	return session.NewStore(log, bot.StateMainMenu)
}

func provideMedia(log *slog.Logger, cfg *config.Config) *media.Service {
	return media.NewService(log, cfg.Media.Dir, cfg.Media.TTL(), cfg.Media.MaxBytes)
}

func provideTelegram(log *slog.Logger, cfg *config.Config) *telegram.Adapter {
	return telegram.New(log, cfg.Telegram.Token, cfg.Media.MaxBytes)
}

func provideSender(log *slog.Logger, adapter *telegram.Adapter) *channel.RetrySender {
	return channel.NewRetrySender(log, adapter, channel.SendPolicy{})
}

func provideChatProvider(cfg *config.Config) chat.Provider {
	if cfg.AI.APIKey == "" {
		return nil
	}
	return chat.NewOpenAIProvider(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Timeout())
}

func provideAssistant(log *slog.Logger, provider chat.Provider, cfg *config.Config) *chat.Assistant {
	if provider == nil {
		return nil
	}
	return chat.NewAssistant(log, provider, cfg.AI.Model)
}

func provideVerifier(log *slog.Logger, provider chat.Provider, assistant *chat.Assistant, cat *catalog.Catalog, cfg *config.Config) *verify.Pipeline {
	var ocr verify.OCRClient
	if provider != nil {
		ocr = chat.NewVisionOCR(provider, cfg.AI.Model)
	}
	var enhancer verify.Enhancer
	if assistant != nil {
		enhancer = assistant
	}
	authority := verify.NewAuthorityClient(log, cfg.Verification.LookupTimeout(), cfg.Verification.UserAgent)
	return verify.NewPipeline(log, verify.NewZXingDecoder(), authority, ocr, enhancer, cat, verify.Options{
		AuthorityHost:  cfg.Verification.AuthorityHost,
		SponsorKeyword: cfg.Verification.SponsorKeyword,
		Rules: verify.Rules{
			MaxAgeMonths: cfg.Verification.MaxAgeMonths,
			Retailers:    cat.Retailers,
		},
	})
}

func provideEngine(log *slog.Logger, cfg *config.Config, sessions *session.Store, userSvc *users.Service, ent *entitlement.Service, ledgerSvc *ledger.Service, verifier *verify.Pipeline, sender *channel.RetrySender, adapter *telegram.Adapter, mediaSvc *media.Service, assistant *chat.Assistant, cat *catalog.Catalog) *bot.Engine {
	deps := bot.Deps{
		Sessions:       sessions,
		Users:          userSvc,
		Entitlement:    ent,
		Ledger:         ledgerSvc,
		Verifier:       verifier,
		Sender:         sender,
		Resolver:       adapter,
		Notifier:       adapter,
		Media:          mediaSvc,
		Catalog:        cat,
		DataDir:        cfg.Data.Dir,
		SponsorKeyword: cfg.Verification.SponsorKeyword,
		ExpertChatID:   chatIDString(cfg.Telegram.ExpertChatID),
		AdminChatID:    chatIDString(cfg.Telegram.AdminChatID),
	}
	if uploader := media.NewHTTPUploader(log, cfg.Media.UploadURL, cfg.Media.UploadKey); uploader != nil {
		deps.Uploader = uploader
	}
	if assistant != nil {
		deps.Assistant = assistant
	}
	return bot.NewEngine(log, deps)
}

func provideBroadcaster(log *slog.Logger, userSvc *users.Service, sender *channel.RetrySender, cat *catalog.Catalog) *tips.Broadcaster {
	return tips.NewBroadcaster(log, userSvc, sender, cat.Tips)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideAuthHandler(log *slog.Logger, cfg *config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, cfg.Server.JwtSecret, cfg.Server.AdminPasswordHash)
}

func provideUsersHandler(log *slog.Logger, userSvc *users.Service, ent *entitlement.Service) *handlers.UsersHandler {
	return handlers.NewUsersHandler(log, userSvc, ent)
}

func provideReceiptsHandler(log *slog.Logger, ledgerSvc *ledger.Service) *handlers.ReceiptsHandler {
	return handlers.NewReceiptsHandler(log, ledgerSvc)
}

func provideServer(log *slog.Logger, cfg *config.Config, ping *handlers.PingHandler, authH *handlers.AuthHandler, usersH *handlers.UsersHandler, receiptsH *handlers.ReceiptsHandler) *server.Server {
	return server.NewServer(log, ":"+strconv.Itoa(cfg.Server.Port), cfg.Server.JwtSecret, ping, authH, usersH, receiptsH)
}

func chatIDString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func startEngine(lc fx.Lifecycle, engine *bot.Engine) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			engine.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
}

func startChannel(lc fx.Lifecycle, log *slog.Logger, adapter *telegram.Adapter, engine *bot.Engine, cfg *config.Config) {
	if cfg.Telegram.Token == "" {
		log.Warn("telegram token not configured, channel disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	var stop func()
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			var err error
			stop, err = adapter.Connect(ctx, engine.HandleInbound)
			if err != nil {
				return fmt.Errorf("connect telegram: %w", err)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			if stop != nil {
				stop()
			}
			return nil
		},
	})
}

// startMaintenance schedules the idle session sweep and the staged media
// cleanup.
func startMaintenance(lc fx.Lifecycle, log *slog.Logger, sessions *session.Store, mediaSvc *media.Service, cfg *config.Config) {
	c := cron.New()
	_, err := c.AddFunc(cfg.Session.SweepCron, func() {
		if n := sessions.Sweep(cfg.Session.MaxIdle()); n > 0 {
			log.Info("idle sessions evicted", slog.Int("count", n))
		}
	})
	if err != nil {
		log.Error("session sweep schedule", slog.String("error", err.Error()))
	}
	_, err = c.AddFunc("* * * * *", func() {
		mediaSvc.Cleanup()
	})
	if err != nil {
		log.Error("media cleanup schedule", slog.String("error", err.Error()))
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-c.Stop().Done()
			return nil
		},
	})
}

func startTips(lc fx.Lifecycle, broadcaster *tips.Broadcaster, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return broadcaster.Start(cfg.Tips.Cron, cfg.Tips.Timezone)
		},
		OnStop: func(_ context.Context) error {
			broadcaster.Stop()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
