package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/api/transport"
	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/middleware"
)

var errNoServiceKey = errors.New("scheduler: service key is required")

// Config configures the aggregation trigger.
type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
	TokenTTL   time.Duration
}

// Client asks the stats service to recompute the snapshot.
type Client struct {
	http   *fasthttp.Client
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.ServiceKey == "" {
		return nil, errNoServiceKey
	}
	if cfg.URL == "" {
		return nil, errors.New("scheduler: aggregate url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &fasthttp.Client{
			Name:         "stats-scheduler",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Token signs a short-lived bearer token with the service key.
func (c *Client) Token() (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   middleware.SchedulerSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.cfg.ServiceKey))
}

// Trigger runs one aggregation and returns the resulting snapshot.
func (c *Client) Trigger(ctx context.Context) (domain.PlatformStats, error) {
	token, err := c.Token()
	if err != nil {
		return domain.PlatformStats{}, fmt.Errorf("sign token: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.SetContentType("application/json")

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return domain.PlatformStats{}, fmt.Errorf("trigger aggregation: %w", err)
	}

	var body transport.Envelope
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return domain.PlatformStats{}, fmt.Errorf("aggregation returned %d: %w", resp.StatusCode(), err)
	}
	if resp.StatusCode() != fasthttp.StatusOK || !body.Success {
		return domain.PlatformStats{}, fmt.Errorf("aggregation returned %d: %s %s", resp.StatusCode(), body.Code, body.Error)
	}
	if body.Stats == nil {
		return domain.PlatformStats{}, fmt.Errorf("aggregation returned no stats")
	}
	return *body.Stats, nil
}

// RunOnce triggers and logs the outcome.
func (c *Client) RunOnce(ctx context.Context) error {
	started := c.now()
	stats, err := c.Trigger(ctx)
	if err != nil {
		c.logger.Error("aggregation trigger failed", zap.String("url", c.cfg.URL), zap.Error(err))
		return err
	}
	c.logger.Info("aggregation triggered",
		zap.Duration("elapsed", c.now().Sub(started)),
		zap.Int64("active_users", stats.ActiveUsers),
		zap.Int64("questions_answered", stats.QuestionsAnswered),
		zap.Int64("pdf_downloads", stats.PDFDownloads),
		zap.Float64("engagement_rate", stats.EngagementRate))
	return nil
}
