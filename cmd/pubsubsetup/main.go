package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/clerksync/internal/config"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// pubsubsetup creates the topics and subscriptions of the user event pipeline. Existing
// resources are kept as they are.
func main() {
	cfg, err := config.Parse[config.PubSub]()
	if err != nil {
		log.WithError(err).Fatal("error parsing configuration")
	}

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		log.WithError(err).WithField("project", cfg.ProjectID).Fatal("unable to create pubsub client")
	}
	defer client.Close()

	layout := map[string][]string{
		cfg.CDCTopic:    {cfg.CDCSubscription},
		cfg.PublicTopic: cfg.PublicSubscriptions,
	}
	for topicID, subscriptionIDs := range layout {
		if err := ensure(ctx, client, topicID, subscriptionIDs); err != nil {
			log.WithError(err).WithField("project", cfg.ProjectID).Fatal("pubsub setup failed")
		}
	}
}

func ensure(ctx context.Context, client *pubsub.Client, topicID string, subscriptionIDs []string) error {
	topic, err := client.CreateTopic(ctx, topicID)
	if status.Code(err) == codes.AlreadyExists {
		topic, err = client.Topic(topicID), nil
	}
	if err != nil {
		return fmt.Errorf("unable to create topic %s: %w", topicID, err)
	}
	log.WithField("topic", topicID).Info("topic ready")

	for _, subscriptionID := range subscriptionIDs {
		if subscriptionID == "" {
			continue
		}
		_, err := client.CreateSubscription(ctx, subscriptionID, pubsub.SubscriptionConfig{Topic: topic})
		if err != nil && status.Code(err) != codes.AlreadyExists {
			return fmt.Errorf("unable to create subscription %s on topic %s: %w", subscriptionID, topicID, err)
		}
		log.WithField("topic", topicID).WithField("subscription", subscriptionID).Info("subscription ready")
	}
	return nil
}
