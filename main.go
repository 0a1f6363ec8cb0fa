package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fredis "github.com/gofiber/storage/redis/v3"
	"github.com/khanghh/tokend/internal/config"
	"github.com/khanghh/tokend/internal/handlers"
	"github.com/khanghh/tokend/internal/issuer"
	"github.com/khanghh/tokend/internal/middlewares"
	"github.com/khanghh/tokend/internal/tokens"
	"github.com/khanghh/tokend/internal/verifier"
	"github.com/khanghh/tokend/model"
	"github.com/khanghh/tokend/params"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "OAuth2 bearer token issuance service"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
	}
	app.Action = run
}

func initLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(cfg config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(cfg.Dsn))
	if err != nil {
		slog.Error("Could not connect to MySQL.", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Could not get MySQL connection pool.", "error", err)
		os.Exit(1)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	if err := db.AutoMigrate(model.Models...); err != nil {
		slog.Error("Could not migrate database schema.", "error", err)
		os.Exit(1)
	}
	return db
}

func mustInitVerifier(cfg *config.Config) verifier.IdentityVerifier {
	switch cfg.AuthBackend {
	case config.AuthBackendDirectory:
		return verifier.NewDirectoryVerifier(cfg.Ldap)
	default:
		return verifier.NewLocalVerifier(mustInitDatabase(cfg.MySQL))
	}
}

// runPurgeLoop actively sweeps expired records on backends without native
// expiry.
func runPurgeLoop(ctx context.Context, store tokens.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.PurgeExpired(ctx); err != nil {
				slog.Error("Could not purge expired tokens.", "error", err)
			}
		}
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}
	initLogger(cfg.Debug || ctx.IsSet(debugFlag.Name))

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()

	var tokenStore tokens.Store
	var locker issuer.Locker
	switch cfg.TokenStore.Backend {
	case config.StoreBackendRedis:
		storage := fredis.New(fredis.Config{URL: cfg.RedisURL})
		defer storage.Close()
		tokenStore = tokens.NewRedisStore(storage.Conn(), cfg.TokenStore.KeyPrefix)
		locker = issuer.NewRedisLocker(storage.Conn())
	case config.StoreBackendMemory:
		tokenStore = tokens.NewMemStore()
		locker = issuer.NewKeyLocker()
		go runPurgeLoop(purgeCtx, tokenStore, time.Minute)
	}

	issuerService := issuer.NewService(
		issuer.Config{
			ScopeAsGroup: cfg.ScopeAsGroup,
			DefaultTTL:   cfg.DefaultTokenTTL,
		},
		mustInitVerifier(cfg),
		tokenStore,
		locker,
	)
	oauthHandler := handlers.NewOAuthHandler(issuerService)

	router := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		BodyLimit:    params.ServerBodyLimit,
		IdleTimeout:  params.ServerIdleTimeout,
		ReadTimeout:  params.ServerReadTimeout,
		WriteTimeout: params.ServerWriteTimeout,
		ErrorHandler: middlewares.ErrorHandler,
	})
	router.Use(middlewares.RequestLog())
	router.Post("/oauth/token", oauthHandler.PostToken)
	router.Get("/oauth/checktoken", oauthHandler.GetCheckToken)
	router.Delete("/oauth/token", oauthHandler.DeleteToken)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("Shutting down.")
		router.Shutdown()
	}()

	slog.Info("Starting token issuance server", "address", cfg.ListenAddr, "store", cfg.TokenStore.Backend, "auth", cfg.AuthBackend)
	return router.Listen(cfg.ListenAddr)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
