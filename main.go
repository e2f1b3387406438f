package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/insideadapt/kb-portal/handlers"
	"github.com/insideadapt/kb-portal/internal/config"
	"github.com/insideadapt/kb-portal/internal/content"
	"github.com/insideadapt/kb-portal/internal/database"
	"github.com/insideadapt/kb-portal/internal/oidc"
	"github.com/insideadapt/kb-portal/internal/search"
	"github.com/insideadapt/kb-portal/internal/sessions"
	"github.com/insideadapt/kb-portal/internal/storage"
	"github.com/insideadapt/kb-portal/internal/users"
	"github.com/insideadapt/kb-portal/pkg/logger"
	"github.com/insideadapt/kb-portal/pkg/metrics"
	"github.com/insideadapt/kb-portal/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: domain=%s content=%s mongo=%v redis=%v minio=%v", cfg.Org.Domain, cfg.Content.Dir, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	health := handlers.NewHealthHandler()

	// Pull the content tree from object storage before the first load
	if cfg.MinIO.Endpoint != "" {
		mcfg := storage.MinIOConfig(cfg.MinIO)
		if st, err := storage.NewMinIOStorage(ctx, &mcfg); err != nil {
			logger.Warnf("minio unavailable, serving local content only: %v", err)
		} else if _, err := storage.Pull(ctx, st, cfg.MinIO.Prefix, cfg.Content.Dir); err != nil {
			logger.Warnf("content pull failed, serving local content: %v", err)
		}
	}

	store, err := content.NewStore(ctx, cfg.Content.Dir)
	if err != nil {
		logger.Fatalf("failed to load content: %v", err)
	}
	health.AddCheck("content", func(context.Context) error {
		if store.Generation() == 0 {
			return errors.New("content not loaded")
		}
		return nil
	})
	if cfg.Content.Watch {
		go func() {
			if err := content.Watch(ctx, store, cfg.Content.Dir, cfg.Content.Debounce); err != nil {
				logger.Errorf("content watcher stopped: %v", err)
			}
		}()
	}
	searcher := search.NewService(store, search.Options{CacheSize: cfg.Search.CacheSize, CacheTTL: cfg.Search.CacheTTL})

	// Redis backs sessions, revocations and the shared rate limiter when configured
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = client.Close()
		} else {
			rdb = client
			defer rdb.Close()
			health.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	var (
		sessionRepo sessions.Repository
		userRepo    users.UserRepository
	)
	if rdb != nil {
		sessionRepo = sessions.NewRedisRepository(rdb, "")
	}
	if cfg.MongoDB.URI != "" {
		if mdb := connectMongo(ctx, cfg); mdb != nil {
			defer func() { _ = mdb.Close(context.Background()) }()
			health.AddCheck("mongodb", mdb.Ping)

			ur := users.NewMongoUserRepository(mdb.DB.Collection(database.UsersCollection))
			if err := ur.EnsureIndexes(ctx); err != nil {
				logger.Warnf("users index: %v", err)
			}
			userRepo = ur
			if sessionRepo == nil {
				sr := sessions.NewMongoRepository(mdb.DB.Collection(database.SessionsCollection))
				if err := sr.EnsureIndexes(ctx); err != nil {
					logger.Warnf("sessions index: %v", err)
				}
				sessionRepo = sr
			}
		}
	}
	if sessionRepo == nil {
		logger.Warnf("no shared session store configured; sessions are kept in memory")
		sessionRepo = sessions.NewMemoryRepository()
	}
	if userRepo == nil {
		userRepo = users.NewMemoryUserRepository()
	}
	sessionsSvc := sessions.NewService(sessionRepo, sessions.NewRevocations(rdb))
	userSvc := users.NewService(userRepo)
	resolver := cfg.Resolver()

	// Google sign-in and bearer ID token verification
	var (
		provider handlers.Provider
		verifier middleware.ProfileVerifier
	)
	if cfg.OIDC.ClientID != "" {
		gp, err := oidc.NewGoogleProvider(ctx, oidc.Config{
			Issuer:       cfg.OIDC.Issuer,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
			HostedDomain: cfg.Org.Domain,
		})
		if err != nil {
			logger.Errorf("failed to initialize OIDC provider: %v", err)
		} else {
			provider = gp
			verifier = gp.Verifier()
		}
	}
	if verifier == nil && cfg.OIDC.AllowInsecure {
		logger.Warn("enabling insecure bearer token verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}
	if provider == nil {
		logger.Warnf("sign-in disabled: GOOGLE_CLIENT_ID is not configured")
	}

	rt := &handlers.Router{
		Guard: middleware.RouteGuard(&middleware.Authenticator{
			Resolver:   resolver,
			Secret:     cfg.Session.Secret,
			CookieName: cfg.Session.CookieName,
			Sessions:   sessionsSvc,
			Verifier:   verifier,
		}),
		Docs:   handlers.NewDocsHandler(store, searcher),
		Auth:   handlers.NewAuthHandler(cfg, provider, resolver, userSvc, sessionsSvc),
		Health: health,
	}
	// Metrics go to the internal listener when one is configured; otherwise
	// /metrics is served on the main router behind the guard.
	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			logger.Infof("serving metrics on %s", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("metrics listener failed: %v", err)
			}
		}()
	} else {
		rt.Gatherer = reg
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			rt.RateLimit = middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
		} else {
			rt.RateLimit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      rt.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting kb-portal on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// connectMongo retries with backoff to tolerate startup races. It returns nil
// when Mongo stays unreachable.
func connectMongo(ctx context.Context, cfg *config.Config) *database.Mongo {
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		mdb, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout)
		if err == nil {
			return mdb
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	logger.Warnf("could not connect to MongoDB after %d attempts; using in-memory stores", maxAttempts)
	return nil
}
