package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/api/transport"
	"github.com/openhouse/marketing-stats/internal/infrastructure/monitor"
	"github.com/openhouse/marketing-stats/pkg/httpcontext"
)

// StatusSource reports dependency status.
type StatusSource interface {
	GetStatus() monitor.Status
}

// Expected lists which dependencies are configured and therefore required to be up.
type Expected struct {
	Reader  bool
	Writer  bool
	Redis   bool
	Journal bool
}

type HealthHandler struct {
	baseHandler
	monitor  StatusSource
	expected Expected
}

func NewHealthHandler(mon StatusSource, expected Expected, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		expected:    expected,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"services": map[string]interface{}{
			"postgresql": map[string]interface{}{
				"reader": dependency(h.expected.Reader, status.Reader),
				"writer": dependency(h.expected.Writer, status.Writer),
			},
			"redis": dependency(h.expected.Redis, status.Redis),
			"journal": map[string]interface{}{
				"status": dependency(h.expected.Journal, status.Journal),
				"size":   status.JournalSize,
			},
		},
	}

	if h.healthy(status) {
		noCache(ctx)
		h.respondJSON(ctx, http.StatusOK, map[string]interface{}{"success": true, "details": payload})
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}

func (h *HealthHandler) healthy(status monitor.Status) bool {
	return (!h.expected.Reader || status.Reader) &&
		(!h.expected.Writer || status.Writer) &&
		(!h.expected.Redis || status.Redis) &&
		(!h.expected.Journal || status.Journal)
}

func dependency(expected, up bool) string {
	switch {
	case !expected:
		return "disabled"
	case up:
		return "up"
	default:
		return "down"
	}
}
