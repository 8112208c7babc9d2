package main // Entry point package

import (
    "context" // timeout for background maintenance
    "log"     // Logging library
    "time"    // sliding-window duration

    "github.com/joho/godotenv"    // .env loading for local development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/mailfold/mailfold/internal/config"
    "github.com/mailfold/mailfold/internal/database"
    "github.com/mailfold/mailfold/internal/handler"
    "github.com/mailfold/mailfold/internal/middleware"
    "github.com/mailfold/mailfold/internal/queue"
    "github.com/mailfold/mailfold/internal/repository"
    "github.com/mailfold/mailfold/internal/router"
    queue_publisher "github.com/mailfold/mailfold/internal/service"
    "github.com/mailfold/mailfold/internal/utils"
    "github.com/mailfold/mailfold/internal/webhook"
)

func main() {
    // Load .env when present; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }

    box, err := utils.NewSecretBox(cfg.AuthSecret)
    if err != nil {
        log.Fatalf("secretbox: %v", err)
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    sessions := repository.NewSessionRepo(db)

    // Redis backs both limiters; nil degrades them to pass-through.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Printf("redis unavailable; rate limiting disabled")
    }
    window := middleware.NewEmailWindow(rdb, cfg.MagicLinkMaxPerWin,
        time.Duration(cfg.MagicLinkWindowSec)*time.Second)

    auth := handler.NewAuthHandler(cfg, users, tokens, sessions, box, window,
        queue_publisher.PublishMagicLinkIssued)
    hooks := handler.NewWebhookHandler(webhook.NewVerifier(cfg.WebhookSecret,
        time.Duration(cfg.WebhookToleranceSec)*time.Second))

    e := echo.New()
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    router.RegisterRoutes(e)
    router.RegisterAuth(e, auth, sessions, users)
    router.RegisterWebhooks(e, hooks)

    // Delivery worker runs for the life of the process and reconnects on
    // broker failure.
    go func() {
        if err := queue.StartMagicLinkConsumer(); err != nil {
            log.Printf("magiclink-consumer stopped: %v", err)
        }
    }()

    // Periodically prune long-expired token rows.  Correctness never
    // depends on this; Consume checks expiry itself.
    go func() {
        ticker := time.NewTicker(time.Hour)
        defer ticker.Stop()
        for range ticker.C {
            ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
            if err := tokens.DeleteExpired(ctx); err != nil {
                log.Printf("token prune failed: %v", err)
            }
            cancel()
        }
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err)
    }
}
