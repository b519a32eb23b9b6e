// Package bridge provides read-only access to customer and vehicle data
// held by the main workshop system, fronted by a Redis read-through cache.
// Upstream unavailability surfaces as domain.ErrNotFound so the
// notification pipeline can degrade gracefully instead of failing.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Nexus6Mx/see/internal/domain"
)

const defaultBridgeTimeout = 10 * time.Second

// Config carries the bridge API endpoint and resilience settings.
type Config struct {
	APIURL        string
	APIKey        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	// TestData serves a fixture for TestOrder instead of calling the API.
	// Development only.
	TestData  bool
	TestOrder string
}

type bridgeResponse struct {
	Success bool                `json:"success"`
	Data    domain.ClientRecord `json:"data"`
	Error   string              `json:"error"`
}

// ClientGetter is the lookup port consumed by the notification pipeline.
type ClientGetter interface {
	GetClientByOrder(ctx context.Context, orderNumber string) (*domain.ClientRecord, error)
}

// Client calls the bridge API with bounded retries.
type Client struct {
	client *resty.Client
	cfg    Config
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	client := resty.New()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBridgeTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewClientWithClient(cfg, client, logger)
}

func NewClientWithClient(cfg Config, client *resty.Client, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, fmt.Errorf("bridge api url is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepWithContext,
	}, nil
}

// GetClientByOrder fetches client data for an order. Both a genuine 404 and
// an exhausted upstream yield domain.ErrNotFound; callers decide whether to
// queue a best-effort message or skip.
func (c *Client) GetClientByOrder(ctx context.Context, orderNumber string) (*domain.ClientRecord, error) {
	trimmed := strings.TrimSpace(orderNumber)
	if trimmed == "" {
		return nil, domain.ErrNotFound
	}

	if c.cfg.TestData && trimmed == c.cfg.TestOrder {
		c.logger.Warn("serving bridge test fixture", zap.String("orderNumber", trimmed))
		return testClientRecord(trimmed), nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		record, retryable, err := c.fetch(ctx, trimmed)
		if err == nil {
			return record, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		if attempt < c.cfg.RetryAttempts {
			if sleepErr := c.sleep(ctx, c.cfg.RetryDelay); sleepErr != nil {
				return nil, domain.ErrNotFound
			}
		}
	}

	c.logger.Error("bridge lookup exhausted retries",
		zap.String("orderNumber", trimmed),
		zap.Int("attempts", c.cfg.RetryAttempts),
		zap.Error(lastErr),
	)
	return nil, domain.ErrNotFound
}

// fetch performs one API call. The bool reports whether the failure is
// worth another attempt within this lookup.
func (c *Client) fetch(ctx context.Context, orderNumber string) (*domain.ClientRecord, bool, error) {
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-API-Key", c.cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetQueryParam("orden", orderNumber).
		Get(c.cfg.APIURL)
	if err != nil {
		return nil, true, fmt.Errorf("bridge request failed: %w", err)
	}

	switch {
	case response.StatusCode() == http.StatusOK:
		var parsed bridgeResponse
		if err := json.Unmarshal(response.Body(), &parsed); err != nil {
			return nil, true, fmt.Errorf("invalid bridge response: %w", err)
		}
		if !parsed.Success {
			c.logger.Warn("bridge api returned error",
				zap.String("orderNumber", orderNumber),
				zap.String("apiError", parsed.Error),
			)
			return nil, false, domain.ErrNotFound
		}
		return &parsed.Data, false, nil

	case response.StatusCode() == http.StatusNotFound:
		return nil, false, domain.ErrNotFound

	default:
		return nil, true, fmt.Errorf("bridge returned status %d", response.StatusCode())
	}
}

func testClientRecord(orderNumber string) *domain.ClientRecord {
	return &domain.ClientRecord{
		OrderNumber:  orderNumber,
		Name:         "Carlos Barba",
		Email:        "cbarbap@gmail.com",
		Phone:        "5577190053",
		VehicleModel: "Honda Civic EX 2020",
		VehiclePlate: "ERR-TEST",
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
