package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-pg/pg/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	clerkactor "github.com/rbroggi/clerksync/internal/actors/clerk"
	grpcactor "github.com/rbroggi/clerksync/internal/actors/grpc"
	"github.com/rbroggi/clerksync/internal/actors/httpapi"
	mongoactor "github.com/rbroggi/clerksync/internal/actors/mongo"
	postgresactor "github.com/rbroggi/clerksync/internal/actors/postgres"
	svixactor "github.com/rbroggi/clerksync/internal/actors/svix"
	"github.com/rbroggi/clerksync/internal/config"
	"github.com/rbroggi/clerksync/internal/core/ports"
	"github.com/rbroggi/clerksync/internal/core/usecase"
	"github.com/rbroggi/clerksync/internal/logging"
	log "github.com/sirupsen/logrus"
)

func run() error {
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Parse[config.Server]()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	repository, closeRepository, err := newRepository(ctx, cfg.Store)
	if err != nil {
		log.WithError(err).Error("could not initialize user store")
		return err
	}
	defer closeRepository()

	syncArgs := usecase.SyncServiceArgs{Repository: repository}
	if cfg.ClerkSecretKey != "" {
		idp, err := clerkactor.NewIdentityProvider(clerkactor.IdentityProviderArgs{SecretKey: cfg.ClerkSecretKey})
		if err != nil {
			return err
		}
		syncArgs.IdentityProvider = idp
	} else {
		log.Warn("CLERK_SECRET_KEY not set: internal ids will not be attached to accounts")
	}
	syncService := usecase.NewSyncService(syncArgs, usecase.WithHardDelete(cfg.Store.HardDelete))

	webhookArgs := httpapi.WebhookHandlerArgs{Usecase: syncService}
	if cfg.WebhookSecret != "" {
		verifier, err := svixactor.NewVerifier(cfg.WebhookSecret)
		if err != nil {
			return err
		}
		webhookArgs.Verifier = verifier
	} else {
		log.Warn("WEBHOOK_SECRET not set: webhook deliveries will be rejected")
	}

	guardArgs := httpapi.RouteGuardArgs{PublicRoutes: cfg.GuardPublicRoutes(), SignInURL: cfg.SignInURL}
	if cfg.ClerkJWTKey != "" {
		sessions, err := httpapi.NewSessionVerifier(cfg.ClerkJWTKey)
		if err != nil {
			return err
		}
		guardArgs.Sessions = sessions
	} else {
		log.Warn("CLERK_JWT_KEY not set: protected routes will reject every request")
	}
	guard, err := httpapi.NewRouteGuard(guardArgs)
	if err != nil {
		return err
	}

	healthService := grpcactor.NewHealthService(grpcactor.HealthServiceArgs{Probe: repository})
	go healthService.Watch(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCServerEndpoint)
	if err != nil {
		return err
	}
	s := grpcactor.NewServer(healthService)

	// Start gRPC server
	go func() {
		if err := s.Serve(lis); err != nil {
			log.WithError(err).Error("grpc server stopped")
			cancel()
		}
	}()

	conn, err := grpc.DialContext(ctx, cfg.GRPCServerEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	router, err := httpapi.NewRouter(httpapi.RouterArgs{
		WebhookPath:  cfg.WebhookPath,
		Webhook:      httpapi.NewWebhookHandler(webhookArgs),
		CurrentUser:  httpapi.NewCurrentUserHandler(httpapi.CurrentUserHandlerArgs{Usecase: syncService}),
		Guard:        guard,
		HealthClient: grpc_health_v1.NewHealthClient(conn),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPServerEndpoint,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			cancel()
		}
	}()

	log.
		WithField("http-server-addr", cfg.HTTPServerEndpoint).
		WithField("grpc-server-addr", cfg.GRPCServerEndpoint).
		WithField("store", cfg.Store.Backend).
		Info("servers up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the server")

	// Wait for signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	select {
	case <-ch:
	case <-ctx.Done():
	}

	shutdown(cancel, httpServer, s)

	return nil
}

// shutdown stops the background watchers first so health reports NOT_SERVING while connections drain.
func shutdown(cancel context.CancelFunc, httpServer *http.Server, s *grpc.Server) {
	cancel()

	// Stop servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("error shutting down http server")
	}
	s.GracefulStop()
}

func newRepository(ctx context.Context, cfg config.Store) (ports.Repository, func(), error) {
	switch cfg.Backend {
	case config.StorePostgres:
		opts, err := pg.ParseURL(cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid POSTGRESQL_URL: %w", err)
		}
		db := pg.Connect(opts)
		if err := db.Ping(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres does not appear to be reachable: %w", err)
		}
		repository, err := postgresactor.NewPostgresDB(postgresactor.PostgresDBArgs{DB: db})
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repository, func() { _ = db.Close() }, nil
	case config.StoreMongo:
		db, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			return nil, nil, fmt.Errorf("error connecting to mongo: %w", err)
		}
		closeDB := func() { _ = db.Disconnect(context.Background()) }
		if err := db.Ping(ctx, nil); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("mongo does not appear to be reachable: %w", err)
		}
		repository, err := mongoactor.NewMongoDB(mongoactor.MongoDBArgs{UserCollection: db.Database(cfg.MongoDB).Collection("users")})
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		if err := repository.EnsureIndexes(ctx); err != nil {
			closeDB()
			return nil, nil, err
		}
		return repository, closeDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
}
