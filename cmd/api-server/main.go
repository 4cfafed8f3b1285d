package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"moviehub/internal/auth"
	"moviehub/internal/cache"
	"moviehub/internal/events"
	"moviehub/internal/movies"
	"moviehub/internal/omdb"
	"moviehub/internal/rating"
	"moviehub/internal/ratelimit"
	"moviehub/internal/reviews"
	"moviehub/internal/stores"
	"moviehub/internal/watchlist"
	"moviehub/pkg/utils"
)

func main() {
	utils.LoadEnv()
	utils.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srvCfg := utils.LoadServerConfig()
	authCfg := utils.LoadAuthConfig()
	lookupCfg := utils.LoadLookupConfig()

	st, err := stores.Open(ctx, utils.LoadStoreConfig())
	if err != nil {
		log.WithError(err).Fatal("[api] open store failed")
	}
	defer st.Close()

	lookupCache, err := openCache(ctx, lookupCfg)
	if err != nil {
		log.WithError(err).Fatal("[api] open lookup cache failed")
	}
	lookup := omdb.NewLookup(omdb.NewClient(lookupCfg.BaseURL, lookupCfg.APIKey, lookupCfg.Timeout), lookupCache, lookupCfg.CacheTTL)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := events.NewHub()
	defer hub.Close()
	router.GET("/ws", events.WSHandler(hub))
	tcpSrv := events.NewServer(srvCfg.TCPAddr, hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": st.Backend})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		cached, _ := lookupCache.Len(pingCtx)
		if err := st.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "ready",
			"db":             st.Location,
			"cached_lookups": cached,
			"tcp_clients":    stats.TCPClients,
			"ws_clients":     stats.WSClients,
		})
	})

	limiter := ratelimit.New(srvCfg.RateLimit, srvCfg.RateEvery)
	go limiter.Run(ctx)

	api := router.Group("/api", limiter.Middleware())

	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	requireAuth := auth.AuthMiddleware(tokenSvc, st.Users)

	// Auth + profiles
	authHandler := auth.NewHandler(st.Users, tokenSvc, authCfg.AdminEmails)
	authHandler.RegisterRoutes(api.Group("/auth"))
	authHandler.RegisterUserRoutes(api.Group("", requireAuth))

	// Movies (public reads, admin writes)
	movieHandler := movies.NewHandler(st.Movies, st.Reviews)
	movieHandler.RegisterRoutes(api.Group("/movies"))
	admin := api.Group("/movies", requireAuth, auth.RequireAdmin())
	movieHandler.RegisterAdminRoutes(admin)

	// External lookup + import
	lookupHandler := omdb.NewHandler(lookup, st.Movies)
	lookupHandler.RegisterRoutes(api.Group("/lookup"))
	lookupHandler.RegisterImportRoute(admin)

	// Reviews
	aggregator := rating.NewAggregator(st.Reviews, st.Movies)
	reviews.NewHandler(st.Reviews, st.Movies, aggregator, hub).
		RegisterRoutes(api.Group("/reviews"), requireAuth)

	// Watchlist (protected)
	watchlist.NewHandler(st.Watchlist, st.Movies, hub).
		RegisterRoutes(api.Group("/watchlist", requireAuth))

	httpSrv := &http.Server{
		Addr:              srvCfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithFields(log.Fields{"addr": srvCfg.HTTPAddr, "store": st.Backend}).Info("[api] HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("[api] shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("[api] server error")
	}

	log.Info("[api] shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("[api] http shutdown error")
	}
	if err := tcpSrv.Close(); err != nil {
		log.WithError(err).Warn("[api] tcp shutdown error")
	}

	wg.Wait()
	log.Info("[api] servers stopped")
}

// openCache builds the lookup cache named by MOVIEHUB_CACHE. The memory cache
// gets a janitor that lives as long as ctx.
func openCache(ctx context.Context, cfg utils.LookupConfig) (cache.Cache, error) {
	switch cfg.Cache {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, err
		}
		log.WithField("addr", cfg.RedisAddr).Info("[api] lookup cache: redis")
		return cache.NewRedis(client, "moviehub:lookup:", cfg.CacheTTL), nil
	default:
		mem := cache.NewMemory(cfg.Capacity, cfg.CacheTTL)
		go mem.Run(ctx, time.Minute)
		log.WithField("capacity", cfg.Capacity).Info("[api] lookup cache: memory")
		return mem, nil
	}
}
