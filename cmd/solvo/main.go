package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/aabc-labs/solvo/internal/blockchain"
	"github.com/aabc-labs/solvo/internal/config"
	"github.com/aabc-labs/solvo/internal/gateway"
	"github.com/aabc-labs/solvo/internal/http_api"
	"github.com/aabc-labs/solvo/internal/models"
	"github.com/aabc-labs/solvo/internal/notificator"
	"github.com/aabc-labs/solvo/internal/repository"
	"github.com/aabc-labs/solvo/internal/wellknown"
	"github.com/aabc-labs/solvo/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "solvo",
		Usage: "Solvo is an x402 payment gateway for Solana",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "bridge-url", Aliases: []string{"b"}, Usage: "Solana bridge service URL"},
			&cli.StringFlag{Name: "wallet-address", Aliases: []string{"w"}, Usage: "Gateway Solana wallet address"},
			&cli.StringFlag{Name: "max-payment-amount", Aliases: []string{"m"}, Usage: "Maximum payment amount per transaction"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "API server port"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("bridge-url") {
		cfg.BridgeURL = c.String("bridge-url")
	}
	if c.IsSet("wallet-address") {
		cfg.WalletAddress = c.String("wallet-address")
	}
	if c.IsSet("max-payment-amount") {
		maxAmount, err := decimal.NewFromString(c.String("max-payment-amount"))
		if err == nil {
			cfg.MaxPaymentAmount = maxAmount
		}
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Initialize well-known token registry
	registry := wellknown.NewRegistry(cfg.WellKnownURL, log)
	registry.Start()

	// Initialize Solana bridge client
	bridge := blockchain.NewSolanaBridge(cfg.BridgeURL, cfg.WalletAddress, registry, log)

	// Initialize notificator
	var notifier models.NotificationService
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		telNotif, err := notificator.NewTelegramNotificator(log, cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram notificator: %v", err)
		}
		notifier = notificator.NewNotificator(log, telNotif)
	}

	// Initialize the payment gateway
	paymentGateway := gateway.NewPaymentGateway(db, bridge, notifier, log, cfg)

	// Initialize API server
	apiServer := http_api.NewHTTPServer(paymentGateway, db, bridge, cfg.APIPort, log)

	go apiServer.Start()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutdown signal received")

	if err := apiServer.Shutdown(); err != nil {
		log.Errorw("API server shutdown error", "error", err)
	}
	if err := paymentGateway.Close(); err != nil {
		log.Errorw("Gateway shutdown error", "error", err)
	}
	registry.Stop()
	bridge.Close()
	if err := db.Close(); err != nil {
		log.Errorw("Database shutdown error", "error", err)
	}

	log.Info("Shutdown complete")
	return nil
}
