package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chatmatch/internal/adapter/repo"
	"chatmatch/internal/entitlement"
	"chatmatch/internal/http/handlers"
	httpapi "chatmatch/internal/http/httpapi"
	"chatmatch/internal/infra"
	"chatmatch/internal/payments"
	"chatmatch/internal/providers/replies"
	"chatmatch/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	loc, err := cfg.QuotaLocation()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid quota timezone")
	}
	engine := entitlement.NewEngine(cfg.FreeGenerationsPerDay, cfg.ProGenerationsPerMonth, loc)

	generator, err := replies.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("openai client init failed")
	}

	runner := infra.NewSQLRunner(dbpool, logger)
	app := &handlers.App{
		Cfg:         cfg,
		Logger:      logger,
		Users:       repo.NewUserRepository(runner, engine),
		Generations: repo.NewGenerationRepository(runner),
		Payments:    repo.NewPaymentRepository(runner),
		Engine:      engine,
		Replies:     generator,
		Stripe:      payments.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripePriceID, cfg.FrontendURL),
		Bot:         telegram.NewBotClient(cfg.TelegramBotToken, cfg.BotAPIBaseURL),
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
