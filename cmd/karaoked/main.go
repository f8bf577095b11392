// Command karaoked serves the karaoke song-request API and, when a Telegram
// token is configured, the chat bot patrons order through.
//
//	@title						Karaoke Requests API
//	@version					1.0
//	@description				Song catalog, table registration and the song-request queue of a karaoke venue.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-karaoke-backend/internal/auth"
	"github.com/tbourn/go-karaoke-backend/internal/chat"
	"github.com/tbourn/go-karaoke-backend/internal/config"
	httpapi "github.com/tbourn/go-karaoke-backend/internal/http"
	"github.com/tbourn/go-karaoke-backend/internal/http/handlers"
	"github.com/tbourn/go-karaoke-backend/internal/http/middleware"
	"github.com/tbourn/go-karaoke-backend/internal/observability"
	"github.com/tbourn/go-karaoke-backend/internal/repo"
	"github.com/tbourn/go-karaoke-backend/internal/services"
	"github.com/tbourn/go-karaoke-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.ConfigureLogger(os.Stderr, cfg.LogPretty, cfg.OTEL.ServiceName)
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("karaoked stopped")
	}
	log.Info().Msg("karaoked stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	// --- store ---
	db, err := repo.Open(repo.Options{
		Driver:  cfg.DBDriver,
		DSN:     cfg.DatabaseDSN(),
		Tracing: cfg.OTEL.Enabled,
		Silent:  cfg.GinMode == gin.ReleaseMode,
	})
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	idx, res, err := services.SyncCatalog(ctx, db, cfg.CatalogPath, cfg.CatalogEncoding)
	if err != nil {
		return err
	}
	log.Info().
		Str("source", res.Source).
		Int("loaded", res.Loaded).
		Int("skipped", res.Skipped).
		Msg("catalog ready")

	idem := services.NewIdempotencyService(db, cfg.IdempotencyTTL)
	if n, err := idem.Purge(ctx, time.Now()); err != nil {
		log.Warn().Err(err).Msg("purge idempotency keys")
	} else if n > 0 {
		log.Info().Int64("purged", n).Msg("expired idempotency keys removed")
	}

	// --- services ---
	secret, err := adminSecret(cfg)
	if err != nil {
		return err
	}
	catalogSvc := services.NewCatalogService(idx)
	users := services.NewUserService(db, secret)
	orders := services.NewOrderService(db, cfg.MaxActiveOrders)

	deps := handlers.Deps{
		Catalog: catalogSvc,
		Users:   users,
		Orders:  orders,
		Idem:    idem,
	}
	var tokens middleware.TokenParser
	if cfg.JWTSecret != "" {
		issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			return err
		}
		deps.Tokens, tokens = issuer, issuer
	} else {
		log.Warn().Msg("JWT_SECRET not set; admin HTTP endpoints are disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	// --- chat bot ---
	if cfg.TelegramToken != "" {
		bot, updates, stopUpdates, err := startBot(gctx, cfg, catalogSvc, users, orders)
		if err != nil {
			return err
		}
		deps.Notifier = bot
		g.Go(func() error {
			<-gctx.Done()
			stopUpdates()
			return nil
		})
		g.Go(func() error { return bot.Run(gctx, updates) })
	} else {
		log.Info().Msg("TELEGRAM_TOKEN not set; chat bot disabled")
	}

	// --- HTTP ---
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, deps, tokens, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// adminSecret builds the verifier for promote_to_admin. A stored bcrypt hash
// wins over a plain password; with neither, every attempt is refused.
func adminSecret(cfg config.Config) (services.SecretVerifier, error) {
	switch {
	case cfg.AdminPasswordHash != "":
		return auth.SecretFromHash(cfg.AdminPasswordHash), nil
	case cfg.AdminPassword != "":
		return auth.NewSecret(cfg.AdminPassword, bcrypt.DefaultCost)
	}
	log.Warn().Msg("ADMIN_PASSWORD not set; nobody can become admin")
	return nil, nil
}

func startBot(ctx context.Context, cfg config.Config, cat chat.Catalog, users chat.Users, orders chat.Orders) (*chat.Bot, tgbotapi.UpdatesChannel, func(), error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, nil, nil, err
	}
	api.Debug = cfg.BotDebug
	log.Info().Str("bot", api.Self.UserName).Msg("telegram authorized")

	var sessions chat.SessionStore
	if cfg.RedisURL != "" {
		rdb, err := chat.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		sessions = chat.NewRedisSessions(rdb, cfg.SessionTTL)
	} else {
		sessions = chat.NewMemorySessions(cfg.SessionTTL)
	}

	bot := chat.New(api, cat, users, orders, sessions, chat.Options{AdminChatID: cfg.AdminChatID})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.BotPollTimeout
	return bot, api.GetUpdatesChan(u), api.StopReceivingUpdates, nil
}
