package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	events "github.com/pritamduttaofficial/VideoTube/Events"
	comments "github.com/pritamduttaofficial/VideoTube/Events/Comments"
	dashboard "github.com/pritamduttaofficial/VideoTube/Events/Dashboard"
	health "github.com/pritamduttaofficial/VideoTube/Events/Health"
	likes "github.com/pritamduttaofficial/VideoTube/Events/Likes"
	playlists "github.com/pritamduttaofficial/VideoTube/Events/Playlists"
	subscriptions "github.com/pritamduttaofficial/VideoTube/Events/Subscriptions"
	tweets "github.com/pritamduttaofficial/VideoTube/Events/Tweets"
	users "github.com/pritamduttaofficial/VideoTube/Events/Users"
	videos "github.com/pritamduttaofficial/VideoTube/Events/Videos"
	auth "github.com/pritamduttaofficial/VideoTube/Services/Auth"
	cache "github.com/pritamduttaofficial/VideoTube/Services/Cache"
	mdb "github.com/pritamduttaofficial/VideoTube/Services/Mdb"
	metrics "github.com/pritamduttaofficial/VideoTube/Services/Metrics"
	storage "github.com/pritamduttaofficial/VideoTube/Services/Storage"
)

// Config collects every environment-derived setting. It is built once in
// main and handed to the services explicitly; nothing reads the environment
// after startup.
type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	CORSOrigin     string
	RequestTimeout time.Duration

	Auth    auth.Config
	Storage storage.Config

	RedisAddr     string
	RedisPassword string
}

func loadConfig() Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file found, using process environment")
	}

	cfg := Config{
		Port:           getenv("PORT", "8080"),
		MongoURI:       getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:        getenv("MONGODB_NAME", "videotube"),
		CORSOrigin:     getenv("CORS_ORIGIN", "*"),
		RequestTimeout: 30 * time.Second,
		Auth: auth.Config{
			AccessSecret:    os.Getenv("ACCESS_TOKEN_SECRET"),
			RefreshSecret:   os.Getenv("REFRESH_TOKEN_SECRET"),
			AccessValidity:  15 * time.Minute,
			RefreshValidity: 10 * 24 * time.Hour,
		},
		Storage: storage.Config{
			AccessKey: os.Getenv("R2_SPACES_ACCESS_KEY"),
			SecretKey: os.Getenv("R2_SPACES_SECRET_KEY"),
			Bucket:    os.Getenv("R2_SPACES_BUCKET"),
			Region:    os.Getenv("R2_SPACES_REGION"),
			Endpoint:  os.Getenv("R2_SPACES_ENDPOINT"),
			PublicURL: os.Getenv("R2_SPACES_PUBLIC_URL"),
		},
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start).String(),
			}).Info("request")
		})
	}
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := loadConfig()

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := mdb.Connect(startupCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	if err := store.EnsureIndexes(startupCtx); err != nil {
		log.WithError(err).Fatal("failed to create indexes")
	}
	log.Info("MongoDB connected")

	authSvc, err := auth.NewService(cfg.Auth)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize auth")
	}

	media, err := storage.New(startupCtx, cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize media store")
	}
	log.Info("media store initialized")

	var statsCache *cache.Cache
	if cfg.RedisAddr != "" {
		statsCache, err = cache.New(startupCtx, cfg.RedisAddr, cfg.RedisPassword, 30*time.Second)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		log.Info("redis connected")
	}

	m := metrics.New()

	registry := &events.Registry{
		Users:         &users.Handler{Store: store, Auth: authSvc, Media: media, Log: log},
		Videos:        &videos.Handler{Store: store, Auth: authSvc, Media: media, Log: log},
		Comments:      &comments.Handler{Store: store, Auth: authSvc, Log: log},
		Likes:         &likes.Handler{Store: store, Auth: authSvc, Log: log},
		Tweets:        &tweets.Handler{Store: store, Auth: authSvc, Log: log},
		Playlists:     &playlists.Handler{Store: store, Auth: authSvc, Log: log},
		Subscriptions: &subscriptions.Handler{Store: store, Auth: authSvc, Log: log},
		Dashboard:     &dashboard.Handler{Store: store, Auth: authSvc, Cache: statsCache, Log: log},
		Health:        &health.Handler{Log: log},
	}

	mux := chi.NewRouter()
	mux.Use(
		corsMiddleware(cfg.CORSOrigin),
		loggingMiddleware(log),
		chimiddleware.Recoverer,
		chimiddleware.Timeout(cfg.RequestTimeout),
		m.Middleware,
	)
	mux.Route("/api/v1", registry.Handler)
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       time.Minute,
	}

	go func() {
		log.Infof("server started at :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	if err := statsCache.Close(); err != nil {
		log.WithError(err).Error("redis close failed")
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.WithError(err).Error("MongoDB disconnect failed")
	}
}
