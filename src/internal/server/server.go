package server

import (
	"context"
	"net/http"
	"time"

	"konung-miniapp-svc/src/clients"
	"konung-miniapp-svc/src/internal/config"
	"konung-miniapp-svc/src/internal/dependency"
	"konung-miniapp-svc/src/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = *logrus.StandardLogger()

type Server struct {
	cfg         *config.Configuration
	deps        *dependency.Manager
	http        *http.Server
	sweepCancel context.CancelFunc
}

func New(cfg *config.Configuration) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	redisClient, err := clients.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	mongodb, err := clients.NewMongoDB(cfg)
	if err != nil {
		return nil, err
	}

	rabbitMQ, err := clients.NewRabbitMQ(&cfg.Queue)
	if err != nil {
		return nil, err
	}
	if err := rabbitMQ.SetupQueue(); err != nil {
		return nil, err
	}

	deps := dependency.NewDependencyManager(router, mongodb, redisClient, rabbitMQ, cfg)
	SetupRoutes(deps)

	return &Server{
		cfg:  cfg,
		deps: deps,
		http: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		},
	}, nil
}

func (s *Server) Start() error {
	sweepInterval := time.Duration(s.cfg.Session.SweepIntervalMinutes) * time.Minute
	if sweepInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.sweepCancel = cancel
		session.StartSweeper(ctx, s.deps.Sessions, sweepInterval)
	}

	log.Infof("Server listening on port %s", s.cfg.Server.Port)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the sweeper before the clients it sweeps through go away.
	if s.sweepCancel != nil {
		s.sweepCancel()
	}

	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}

	s.deps.RabbitMQ.Close()
	s.deps.Redis.Close()
	return s.deps.Mongodb.Close(ctx)
}
