package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/notewave/notewave/handlers"
	"github.com/notewave/notewave/internal/config"
	"github.com/notewave/notewave/internal/database"
	notehandler "github.com/notewave/notewave/internal/note/handler"
	noterepo "github.com/notewave/notewave/internal/note/repository"
	notesvc "github.com/notewave/notewave/internal/note/service"
	"github.com/notewave/notewave/internal/relay"
	"github.com/notewave/notewave/internal/sessions"
	"github.com/notewave/notewave/internal/users"
	"github.com/notewave/notewave/pkg/logger"
	"github.com/notewave/notewave/pkg/metrics"
	"github.com/notewave/notewave/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Redis early so the rate-limiter, the session store and the
	// relay bus can use it when configured.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			sessions.SetBlacklistClient(rdb)
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Prefer Redis-based sessions when available
	var sessionsSvc *sessions.Service
	if rdb != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(rdb, "session:"))
		logger.Infof("using Redis for session storage")
	}

	// MongoDB-backed repositories. Startup tolerates a database that is still
	// coming up; without Mongo the service falls back to in-memory storage,
	// which is enough for local development.
	var mongoClient *mongo.Client
	var userSvc *users.Service
	var noteService notesvc.Service
	if cfg.MongoDB.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		mongoClient, err = database.ConnectMongoWithRetry(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		cancel()
		if err != nil {
			logger.Warnf("could not connect to MongoDB: %v", err)
		}
	}
	if mongoClient != nil {
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		db := mongoClient.Database(cfg.MongoDB.Database)
		userSvc = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
		noteService = notesvc.New(noterepo.NewMongoRepo(db.Collection("notes")), userSvc)
		if sessionsSvc == nil {
			sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
		}
	} else {
		logger.Warnf("MongoDB unavailable, using in-memory storage")
		userSvc = users.NewService(users.NewMemoryUserRepository())
		noteService = notesvc.New(noterepo.NewMemoryRepo(), userSvc)
	}

	// Relay hub; the Redis bus fans events out across instances when present
	var bus *relay.Bus
	if rdb != nil {
		if b, err := relay.NewBus(ctx, rdb); err != nil {
			logger.Warnf("relay bus unavailable: %v", err)
		} else {
			bus = b
		}
	}
	hub := relay.NewHub(cfg.Relay, bus)
	go hub.Run(ctx)
	r.GET("/ws", hub.HandleWS)

	// HTTP surface
	notehandler.RegisterNoteRoutes(r, noteService)
	var verifier middleware.Verifier
	if sessionsSvc != nil {
		ah := handlers.NewAuthHandler(cfg, userSvc, sessionsSvc)
		ah.Register(r.Group("/api"))
		verifier = ah.Verifier()
	} else {
		logger.Warnf("auth routes not registered because no session store is available")
	}
	handlers.RegisterSwagger(r)

	if verifier != nil {
		r.GET("/api/me", middleware.AuthMiddleware(verifier), func(c *gin.Context) {
			ident, _ := middleware.IdentityFrom(c)
			u, err := userSvc.GetByID(c.Request.Context(), ident.UserID)
			if err == nil && u != nil {
				c.JSON(http.StatusOK, gin.H{"user": u})
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": gin.H{
				"id": ident.UserID, "name": ident.Name, "email": ident.Email,
			}})
		})
	}

	// Prometheus metrics
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness reports 200 only when critical dependencies are wired
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"notes":    noteService != nil,
			"sessions": sessionsSvc != nil,
			"redis":    rdb != nil || cfg.Redis.Host == "",
			"mongo":    mongoClient != nil || cfg.MongoDB.URI == "",
		}
		ready := true
		for _, ok := range deps {
			if !ok {
				ready = false
			}
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	// no read/write timeouts here: /ws connections are long-lived and the
	// relay enforces its own ping/pong deadlines
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("notewave listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}
