package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// Client pushes registry events to the off-chain indexer service that backs
// the fast query API.
type Client interface {
	StoreEvent(ctx context.Context, event models.Event) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds an indexer API client using the provided configuration values.
func NewClient(cfg config.IndexerConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	if cfg.AuthToken != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AuthToken))
	}

	return &APIClient{httpClient: restyClient}
}

// apiError represents an indexer error payload.
type apiError struct {
	Error string `json:"error"`
}

// StoreEvent posts one event to the indexer's ingest endpoint.
func (c *APIClient) StoreEvent(ctx context.Context, event models.Event) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(event).
		SetError(apiErr).
		Post("/api/v1/events")
	if err != nil {
		return fmt.Errorf("push event to indexer: %w", err)
	}

	if resp.IsError() {
		detail := apiErr.Error
		if detail == "" {
			detail = resp.Status()
		}
		return fmt.Errorf("indexer rejected event %d: %s", event.Seq, detail)
	}

	return nil
}
