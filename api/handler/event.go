package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/openhouse/marketing-stats/api/transport"
	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/pkg/httpcontext"
	recorderUC "github.com/openhouse/marketing-stats/usecase/recorder"
)

const trackProbeMessage = "analytics tracking endpoint, POST an event to record it"

type EventHandler struct {
	baseHandler
	uc *recorderUC.UseCase
}

func NewEventHandler(uc *recorderUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Record an engagement event
// @Tags analytics
// @Router /api/analytics/track [post]
func (h *EventHandler) Track(ctx *fasthttp.RequestCtx) {
	req, err := decodeTrackRequest(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Record(stdCtx, recorderUC.Input{
		Type:          req.Type,
		DevelopmentID: req.DevelopmentID,
		UnitID:        req.UnitID,
	}); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess())
}

// @Summary Tracking endpoint probe
// @Tags analytics
// @Router /api/analytics/track [get]
func (h *EventHandler) Probe(ctx *fasthttp.RequestCtx) {
	h.respondJSON(ctx, http.StatusOK, transport.Message{Message: trackProbeMessage})
}

// decodeTrackRequest treats an empty body as an empty request so that it
// reports the missing type rather than a syntax error.
func decodeTrackRequest(body []byte) (transport.TrackEventRequest, error) {
	var req transport.TrackEventRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidPayload.Message, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, domain.NewError(domain.ErrCodeInvalid, "invalid payload: trailing data")
	}
	return req, nil
}
