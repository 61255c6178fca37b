package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"worldcup-service/internal/media"
	"worldcup-service/internal/store"
	"worldcup-service/internal/worldcup"
)

func main() {
	// A missing .env is fine; the environment wins anyway.
	_ = godotenv.Load()

	cfg, err := loadConfigFromEnv()
	if err != nil {
		log.Fatalf("worldcup-service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("worldcup-service: %v", err)
	}
	defer closeStore()

	// Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("worldcup-service: invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	// Previews end on their own only when durations can be looked up.
	var durations media.DurationLookup
	yt := media.NewYouTubeClient(cfg.YouTubeAPIKey, cfg.YouTubeVideosURL, rdb)
	if yt.Enabled() {
		durations = yt
	} else {
		log.Printf("worldcup-service: YOUTUBE_API_KEY not set, previews end only on client report")
	}

	srv := worldcup.NewServer(st, rdb, durations, cfg.serverOptions())
	srv.StartJanitor(ctx)

	r := srv.Router(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(cfg.RequestTimeout),
	)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("worldcup-service listening on :%s (%s)", cfg.Port, cfg.DatabaseType)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		// Passes still open get their pending writes flushed before exit.
		srv.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Printf("worldcup-service: %v", err)
	}
	log.Printf("worldcup-service stopped")
}

func openStore(ctx context.Context, cfg Config) (worldcup.Store, func(), error) {
	switch cfg.DatabaseType {
	case "sqlite":
		s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := store.AutoMigrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store.NewPostgresStore(pool), pool.Close, nil
	}
}
