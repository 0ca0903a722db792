package audit

import (
	"context"
	"fmt"

	"admin-auth-service/internal/client"
	"admin-auth-service/internal/model"
)

// ElasticSink indexes each event individually for forensic search.
type ElasticSink struct {
	client *client.ESClient
	index  string
}

func NewElasticSink(esClient *client.ESClient, index string) *ElasticSink {
	return &ElasticSink{client: esClient, index: index}
}

func (s *ElasticSink) Write(ctx context.Context, event model.SecurityEvent) error {
	if err := s.client.IndexDocument(ctx, s.index, event.EventID, event); err != nil {
		return fmt.Errorf("failed to index security event: %w", err)
	}
	return nil
}

func (s *ElasticSink) Close() error {
	s.client.Close()
	return nil
}
