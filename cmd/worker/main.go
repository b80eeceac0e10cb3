package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	grpcactor "github.com/rbroggi/clerksync/internal/actors/grpc"
	produceractor "github.com/rbroggi/clerksync/internal/actors/pubsub/producer"
	subscriberactor "github.com/rbroggi/clerksync/internal/actors/pubsub/subscriber"
	"github.com/rbroggi/clerksync/internal/config"
	"github.com/rbroggi/clerksync/internal/core/usecase"
	"github.com/rbroggi/clerksync/internal/logging"
	log "github.com/sirupsen/logrus"
)

// topicProbe reports the public topic as healthy while it exists.
type topicProbe struct {
	topic *pubsub.Topic
}

func (p topicProbe) Ping(ctx context.Context) error {
	ok, err := p.topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("public user event topic does not exist")
	}
	return nil
}

func run() error {
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Parse[config.Worker]()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		return err
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return err
	}
	defer client.Close()

	topic := client.Topic(cfg.PubSub.PublicTopic)
	defer topic.Stop()
	producer, err := produceractor.NewProducer(topic)
	if err != nil {
		return err
	}

	informer := usecase.NewInformer(producer)

	subscription := client.Subscription(cfg.PubSub.CDCSubscription)
	subscriber := subscriberactor.NewSubscriber(subscriberactor.SubscriberArgs{
		UserEventHandler: informer,
		Subscription:     subscription,
	})

	// start subscriber
	go func(ctx context.Context) {
		if err := subscriber.Consume(ctx); err != nil {
			log.WithError(err).Error("subscriber stopped")
			cancel()
		}
	}(ctx)

	healthService := grpcactor.NewHealthService(grpcactor.HealthServiceArgs{Probe: topicProbe{topic: topic}})
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

	mux := runtime.NewServeMux(runtime.WithHealthzEndpoint(grpc_health_v1.NewHealthClient(conn)))
	httpServer := &http.Server{
		Addr:              cfg.HTTPServerEndpoint,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start http-gateway server
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			cancel()
		}
	}()

	log.
		WithField("http-server-addr", cfg.HTTPServerEndpoint).
		WithField("grpc-server-addr", cfg.GRPCServerEndpoint).
		WithField("subscription", cfg.PubSub.CDCSubscription).
		WithField("topic", cfg.PubSub.PublicTopic).
		Info("servers up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the server")

	// Wait for signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	select {
	case <-ch:
	case <-ctx.Done():
	}
	cancel()

	// Stop servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("error shutting down http server")
	}
	s.GracefulStop()

	return nil
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("worker exited with error")
	}
}
