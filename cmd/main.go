package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/config"
	"github.com/ShreyaaMaityy/SyncFlow/internal/ai"
	"github.com/ShreyaaMaityy/SyncFlow/internal/auth"
	"github.com/ShreyaaMaityy/SyncFlow/internal/hub"
	"github.com/ShreyaaMaityy/SyncFlow/internal/memstore"
	"github.com/ShreyaaMaityy/SyncFlow/internal/postgres"
	"github.com/ShreyaaMaityy/SyncFlow/internal/redisstore"
	"github.com/ShreyaaMaityy/SyncFlow/internal/service"
	grpcx "github.com/ShreyaaMaityy/SyncFlow/internal/transport/grpc"
	httpx "github.com/ShreyaaMaityy/SyncFlow/internal/transport/http"
	"github.com/ShreyaaMaityy/SyncFlow/internal/transport/ws"
	"github.com/ShreyaaMaityy/SyncFlow/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting syncflow-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "store", cfg.Store.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- store ---
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	// --- collaborators ---
	designer, err := ai.New(ctx, ai.Config{APIKey: cfg.AI.APIKey, Model: cfg.AI.Model})
	if err != nil {
		log.Fatalf("ai: %v", err)
	}

	var verifier ws.TokenVerifier
	if cfg.Auth.Enabled() {
		v, err := newVerifier(cfg.Auth)
		if err != nil {
			log.Fatalf("auth: %v", err)
		}
		verifier = v
	}

	// --- hub & services ---
	registry := hub.NewRegistry()
	router := hub.NewRouter(registry)

	presenceSvc := service.NewPresenceService(registry, router)
	mutationSvc := service.NewMutationService(router)
	chatSvc := service.NewChatService(router, designer, service.WithAITimeout(cfg.AI.Timeout))
	reconciler := service.NewReconciler(store, service.ReconcilerConfig{
		Debounce:     cfg.Reconciler.Debounce,
		WriteTimeout: cfg.Reconciler.WriteTimeout,
	})
	workspaceSvc := service.NewWorkspaceService(store, reconciler)
	readiness := service.NewReadiness(store)

	// --- WS ---
	wsServer := ws.NewServer(ws.Config{
		ReadBufferSize:  cfg.WS.ReadBufferSize,
		WriteBufferSize: cfg.WS.WriteBufferSize,
		PingInterval:    cfg.WS.PingInterval,
		WriteTimeout:    cfg.WS.WriteTimeout,
		SendQueueSize:   cfg.WS.SendQueueSize,
		MaxMessageSize:  cfg.WS.MaxMessageSize,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
	}, ws.Deps{
		Registry:  registry,
		Presence:  presenceSvc,
		Mutations: mutationSvc,
		Chat:      chatSvc,
		Snapshots: reconciler,
		Verifier:  verifier,
	})

	// --- HTTP ---
	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpx.NewRouter(httpx.Deps{
			Handler:        httpx.NewHandler(workspaceSvc),
			WS:             wsServer.HandleWS,
			Ready:          readiness.Check,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// --- gRPC ---
	var grpcSrv *grpcx.Server
	if cfg.GRPC.Addr != "" {
		grpcSrv = grpcx.NewServer()
	}

	// --- run ---
	errCh := make(chan error, 2)

	httpLis, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		log.Fatalf("http listen: %v", err)
	}
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if grpcSrv != nil {
		grpcLis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		go func() {
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := grpcSrv.Serve(grpcLis); err != nil {
				errCh <- err
			}
		}()
		go grpcSrv.WatchReadiness(ctx, readiness.Check, 5*time.Second)
	}
	readiness.MarkListening()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()

	if err := wsServer.Shutdown(ctxShutdown); err != nil {
		slog.Warn("ws shutdown", "err", err)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	if err := chatSvc.Wait(ctxShutdown); err != nil {
		slog.Warn("ai commands still running", "err", err)
	}
	if err := reconciler.Close(ctxShutdown); err != nil {
		slog.Error("snapshot flush", "err", err)
	}
	slog.Info("stopped")
}

// openStore connects the configured backend. An unreachable store is logged,
// not fatal: the relay keeps serving rooms and only persistence degrades.
func openStore(ctx context.Context, cfg config.Store) (service.WorkspaceStore, func(), error) {
	switch cfg.Backend {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres.ToPGConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		repo := postgres.NewWorkspaceRepository(pool)
		if err := repo.Ping(ctx); err != nil {
			slog.Warn("postgres unreachable at startup", "err", err)
		} else if err := repo.EnsureSchema(ctx); err != nil {
			slog.Warn("postgres schema", "err", err)
		}
		return repo, pool.Close, nil

	case config.StoreRedis:
		rs, err := redisstore.New(cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			slog.Warn("redis unreachable at startup", "err", err)
		}
		return rs, func() { _ = rs.Close() }, nil

	default:
		slog.Warn("using in-memory store, snapshots are lost on restart")
		return memstore.New(), func() {}, nil
	}
}

func newVerifier(cfg config.Auth) (*auth.Verifier, error) {
	vc := auth.Config{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		ClockSkew: cfg.ClockSkew,
	}
	if cfg.PublicKeyPath != "" {
		pub, err := auth.LoadRSAPublicKeyFromPEM(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load public key: %w", err)
		}
		vc.PublicKey = pub
	}
	return auth.NewVerifier(vc)
}
