package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/api/transport"
	"github.com/openhouse/marketing-stats/internal/metrics"
	"github.com/openhouse/marketing-stats/pkg/httpcontext"
	aggregatorUC "github.com/openhouse/marketing-stats/usecase/aggregator"
	readerUC "github.com/openhouse/marketing-stats/usecase/reader"
)

type StatsHandler struct {
	baseHandler
	reader     *readerUC.UseCase
	aggregator *aggregatorUC.UseCase

	aggregateAdapter *httpcontext.Adapter
}

func NewStatsHandler(reader *readerUC.UseCase, aggregator *aggregatorUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		reader:      reader,
		aggregator:  aggregator,
	}
}

// WithAggregateTimeout sets the deadline applied to HTTP-triggered aggregation runs.
func (h *StatsHandler) WithAggregateTimeout(timeout time.Duration) *StatsHandler {
	h.aggregateAdapter = httpcontext.NewAdapter(timeout)
	return h
}

// @Summary Current platform stats snapshot
// @Tags stats
// @Router /api/marketing-stats [get]
func (h *StatsHandler) Snapshot(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	noCache(ctx)
	h.respondJSON(ctx, http.StatusOK, h.reader.Snapshot(stdCtx))
}

// @Summary Live engagement stats
// @Tags stats
// @Router /api/analytics [get]
func (h *StatsHandler) Live(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	noCache(ctx)
	h.respondJSON(ctx, http.StatusOK, h.reader.Live(stdCtx))
}

// @Summary Recompute the stats snapshot
// @Tags stats
// @Router /api/internal/stats/aggregate [post]
func (h *StatsHandler) Aggregate(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	if h.aggregateAdapter != nil {
		cancel()
		stdCtx, cancel = h.aggregateAdapter.Attach(ctx)
	}
	defer cancel()

	stats, err := h.aggregator.Run(stdCtx, metrics.TriggerHTTP)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewStatsSuccess(stats))
}
