package main // Entry point package

import (
    "context"
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/buskabout/buskabout/internal/config"
    "github.com/buskabout/buskabout/internal/database"
    "github.com/buskabout/buskabout/internal/handler"
    "github.com/buskabout/buskabout/internal/middleware"
    "github.com/buskabout/buskabout/internal/model"
    "github.com/buskabout/buskabout/internal/queue"
    "github.com/buskabout/buskabout/internal/repository"
    "github.com/buskabout/buskabout/internal/router"
    "github.com/buskabout/buskabout/internal/schedule"
    queue_publisher "github.com/buskabout/buskabout/internal/service"
    "github.com/buskabout/buskabout/internal/session"
    "github.com/buskabout/buskabout/internal/storage"
    "github.com/buskabout/buskabout/internal/timeutil"
)

func main() {
    _ = godotenv.Load() // .env is optional; real env vars win

    cfg := config.Load()
    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    rdb := config.NewRedisClient() // nil when Redis is not configured

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    buskers := repository.NewBuskerRepo(db)
    schedules := repository.NewScheduleRepo(db)

    objects := storage.New(cfg.StorageRoot, cfg.PublicBaseURL)
    sessions := session.NewNotifier(rdb)

    // Expired schedule rows fan out to RabbitMQ so anything downstream
    // (the log consumer, future notifiers) can react without touching the
    // request path.
    clk := timeutil.NewSystemClock()
    engine := schedule.NewEngine(schedules, buskers, clk,
        func(ctx context.Context, rows []model.Schedule) {
            events := make([]queue.ScheduleExpiredEvent, len(rows))
            now := timeutil.InZone(clk.Now()).Format("2006-01-02 15:04:05")
            for i, s := range rows {
                events[i] = queue.ScheduleExpiredEvent{
                    ScheduleID: s.ID,
                    BuskerID:   s.BuskerID,
                    Username:   s.Username,
                    Genre:      s.Genre,
                    Lat:        s.Lat,
                    Lng:        s.Lng,
                    Date:       s.Date,
                    StartTime:  s.StartTime,
                    EndTime:    s.EndTime,
                    ExpiredAt:  now,
                }
            }
            _ = queue_publisher.PublishScheduleExpired(ctx, events)
        })

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go engine.Run(ctx)

    go func() {
        if err := queue.StartExpiryConsumer(); err != nil {
            log.Printf("expiry consumer stopped: %v", err)
        }
    }()

    // Mirror session changes into the process log; other instances see the
    // same stream through Redis.
    go func() {
        events, stop := sessions.Subscribe(ctx)
        defer stop()
        for ev := range events {
            log.Printf("session: %s user=%d username=%q", ev.Kind, ev.UserID, ev.Username)
        }
    }()

    e := echo.New()
    cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    limitMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

    router.RegisterRoutes(e, cfg.StorageRoot)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, sessions), cfg.JWTSecret)
    router.RegisterBuskers(e,
        handler.NewBuskerHandler(cfg, buskers),
        handler.NewGalleryHandler(buskers, objects),
        cfg.JWTSecret, cacheMW, limitMW)
    router.RegisterSchedules(e,
        handler.NewScheduleHandler(cfg, engine),
        buskers, cfg.JWTSecret, cacheMW, limitMW)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
