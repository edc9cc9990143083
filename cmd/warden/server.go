package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/haven-social/warden/antiraid"
	"github.com/haven-social/warden/automod"
	"github.com/haven-social/warden/automod/rules"
	"github.com/haven-social/warden/config"
	"github.com/haven-social/warden/gateway"
	"github.com/haven-social/warden/platform"
	"github.com/haven-social/warden/reconciler"
	"github.com/haven-social/warden/store"
	"github.com/haven-social/warden/windowstore"
)

type Server struct {
	logger     *slog.Logger
	engine     *automod.Engine
	detector   *antiraid.Detector
	reconciler *reconciler.Reconciler
	scheduler  *gateway.Scheduler
	subscriber *gateway.Subscriber
}

type ServerConfig struct {
	GatewayHost       string
	PlatformHost      string
	PlatformToken     string
	RedisURL          string
	PlatformRateLimit int
	EventConcurrency  int
	Logger            *slog.Logger
}

func NewServer(db *gorm.DB, cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger

	if !strings.HasPrefix(cfg.GatewayHost, "ws") {
		return nil, fmt.Errorf("specified gateway host must include 'ws://' or 'wss://'")
	}

	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("running database migrations: %w", err)
	}
	st := store.NewGormStore(db)
	configs := config.NewLoader(st, logger)
	pc := platform.NewRESTClient(cfg.PlatformHost, cfg.PlatformToken, cfg.PlatformRateLimit, logger)

	var spamTracker, joinTracker windowstore.WindowStore
	var prunables []interface{ Prune() }
	if cfg.RedisURL != "" {
		var err error
		spamTracker, err = windowstore.NewRedisWindowStore(cfg.RedisURL, 10*time.Second)
		if err != nil {
			return nil, fmt.Errorf("initializing redis spam window: %w", err)
		}
		joinTracker, err = windowstore.NewRedisWindowStore(cfg.RedisURL, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis join window: %w", err)
		}
		logger.Info("using redis rate windows", "url", cfg.RedisURL)
	} else {
		spam := windowstore.NewMemWindowStore(10 * time.Second)
		join := windowstore.NewMemWindowStore(time.Minute)
		spamTracker, joinTracker = spam, join
		prunables = append(prunables, spam, join)
	}

	engine := &automod.Engine{
		Logger:      logger,
		Rules:       rules.DefaultRules(),
		Configs:     configs,
		Store:       st,
		Platform:    pc,
		SpamTracker: spamTracker,
		History:     windowstore.NewHistoryStore(8192, time.Minute, 10),
		MemberCache: automod.NewMemberCache(),
	}
	detector := antiraid.NewDetector(logger, configs, st, pc, joinTracker)
	rec := &reconciler.Reconciler{
		Logger:        logger,
		Store:         st,
		Platform:      pc,
		Configs:       configs,
		CaseRetention: reconciler.DefaultCaseRetention,
		Prunables:     prunables,
	}

	srv := &Server{
		logger:     logger,
		engine:     engine,
		detector:   detector,
		reconciler: rec,
	}
	srv.scheduler = gateway.NewScheduler(cfg.EventConcurrency, logger, srv.handleEvent)
	srv.subscriber = gateway.NewSubscriber(cfg.GatewayHost+"/events", srv.scheduler, logger)
	return srv, nil
}

func (s *Server) handleEvent(ctx context.Context, evt *gateway.Event) error {
	eventsReceived.WithLabelValues(string(evt.Kind)).Inc()
	switch evt.Kind {
	case gateway.EventKindMessage:
		if evt.Message == nil {
			return fmt.Errorf("message event without payload")
		}
		return s.engine.ProcessMessage(ctx, evt.CommunityID, evt.Message)
	case gateway.EventKindMemberJoin:
		if evt.Join == nil {
			return fmt.Errorf("join event without payload")
		}
		return s.detector.ProcessJoin(ctx, evt.CommunityID, evt.Join)
	case gateway.EventKindMemberLeave:
		if evt.Leave != nil {
			s.logger.Debug("member left", "community", evt.CommunityID, "user", evt.Leave.UserID)
		}
		return nil
	case gateway.EventKindReaction:
		// reactions carry no moderation signal yet; counted and dropped
		return nil
	}
	s.logger.Debug("ignoring unknown event kind", "kind", evt.Kind)
	return nil
}

// Run blocks until ctx is cancelled, then drains the scheduler.
func (s *Server) Run(ctx context.Context) error {
	go s.reconciler.Run(ctx)

	err := s.subscriber.Run(ctx)
	s.scheduler.Shutdown()
	return err
}

func (s *Server) RunMetrics(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, mux)
}
