package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/graphscout/graphscout/internal/graph"
)

// PubSubNotifier publishes run summaries to a Google Cloud Pub/Sub topic.
// Authentication uses Application Default Credentials.
type PubSubNotifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubNotifier creates the client and verifies the topic exists, so a
// bad topic name fails at startup.
func NewPubSubNotifier(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}

	return &PubSubNotifier{client: client, topic: topic, logger: logger}, nil
}

// RunFinished publishes the summary as JSON. The send is asynchronous; the
// client batches and retries in the background, and Close drains it.
func (p *PubSubNotifier) RunFinished(ctx context.Context, summary graph.TraversalSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": summary.RunID,
			"status": string(summary.Status),
		},
	})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			p.logger.Warn("run notification publish failed",
				zap.String("run_id", summary.RunID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Close flushes pending messages and releases the client.
func (p *PubSubNotifier) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
