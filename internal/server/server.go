package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/beliefatlas/apiserver/config"
	"github.com/beliefatlas/apiserver/internal/db"
	"github.com/beliefatlas/apiserver/internal/handlers"
	"github.com/beliefatlas/apiserver/internal/logger"
	"github.com/beliefatlas/apiserver/internal/mq"
	"github.com/beliefatlas/apiserver/internal/services"
	"github.com/beliefatlas/apiserver/internal/storage"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/internal/workers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, router, and background worker.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *mq.MQ
	worker     *workers.RegenerateWorker
	log        *zap.SugaredLogger
	cancel     context.CancelFunc
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objects, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	bus, err := newMQ(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	profileRepo := store.NewProfileRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)
	surveyRepo := store.NewSurveyRepository(dbConn)

	userService := services.NewUserService(userRepo)
	profileService := services.NewProfileService(profileRepo, userRepo, objects, bus, log)
	surveyService := services.NewSurveyService(surveyRepo, bus, log)
	privacyService := services.NewPrivacyService(profileRepo, surveyRepo, userRepo, objects, bus, log)
	exportService := services.NewExportService(profileRepo, objects, log)

	worker := workers.NewRegenerateWorker(profileRepo, surveyRepo, bus, log)

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		_ = bus.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/profiles", func(r chi.Router) {
		handlers.ProfileRouter(r, profileService, exportService, userService, authMiddleware)
	})
	router.Route("/surveys", func(r chi.Router) {
		handlers.SurveyRouter(r, surveyService, authMiddleware)
	})
	router.Route("/privacy", func(r chi.Router) {
		handlers.PrivacyRouter(r, privacyService, userService, authMiddleware)
	})
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		worker:     worker,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the regeneration worker and the HTTP server.
func (s *Server) Start() error {
	workerCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		if err := s.worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Errorw("regeneration worker stopped", "error", err)
		}
	}()

	s.log.Infow("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	switch cfg.Backend {
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	case "", "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newMQ(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch cfg.Backend {
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "", "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
