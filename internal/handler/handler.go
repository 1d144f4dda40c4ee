// Package handler maps HTTP and API Gateway requests onto the translation pipeline.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pricofy/translation-proxy/internal/domain"
)

// Header names.
const (
	HeaderIdentity  = "X-User-Id"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRequestID = "X-Request-Id"
)

// MaxBodyBytes bounds the request body.
const MaxBodyBytes = 1 << 20

// Runner executes the translation pipeline.
type Runner interface {
	Run(ctx context.Context, identity string, req domain.Request) (domain.Response, error)
}

// Reply is a transport-neutral response.
type Reply struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Handler decodes translation requests and encodes pipeline results.
type Handler struct {
	runner Runner
	log    *zap.Logger
}

// New creates a handler.
func New(runner Runner, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{runner: runner, log: log}
}

// Translate handles one translation request body for identity.
func (h *Handler) Translate(ctx context.Context, identity string, body []byte) Reply {
	requestID := uuid.NewString()
	log := h.log.With(zap.String("request_id", requestID))

	reply := Reply{Headers: map[string]string{
		"Content-Type":  "application/json",
		HeaderRequestID: requestID,
	}}

	if len(body) > MaxBodyBytes {
		return h.fail(log, reply, domain.Response{}, domain.ValidationError("request body exceeds %d bytes", MaxBodyBytes))
	}

	req, err := decodeRequest(body)
	if err != nil {
		return h.fail(log, reply, domain.Response{}, err)
	}

	resp, err := h.runner.Run(ctx, identity, req)
	if err != nil {
		return h.fail(log, reply, resp, err)
	}

	payload, err := json.Marshal(resp.Results)
	if err != nil {
		return h.fail(log, reply, resp, err)
	}
	setQuotaHeaders(reply.Headers, resp)
	reply.Status = http.StatusOK
	reply.Body = payload
	return reply
}

func decodeRequest(body []byte) (domain.Request, error) {
	var req domain.Request
	if err := json.Unmarshal(body, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "textLayers" {
			return req, domain.ValidationError("textLayers must be an array")
		}
		return req, domain.ValidationError("invalid JSON body")
	}
	return req, nil
}

func (h *Handler) fail(log *zap.Logger, reply Reply, resp domain.Response, err error) Reply {
	body := domain.ErrorBody{Error: "internal error"}
	reply.Status = http.StatusInternalServerError

	var de *domain.Error
	if errors.As(err, &de) {
		body.Error = de.Message
		switch de.Kind {
		case domain.KindValidation:
			reply.Status = http.StatusBadRequest
		case domain.KindQuotaExceeded:
			reply.Status = http.StatusTooManyRequests
			zero := 0
			body.RateLimited = true
			body.Remaining = &zero
			resp.Remaining = 0
			setQuotaHeaders(reply.Headers, resp)
		case domain.KindProvider:
			reply.Status = http.StatusBadGateway
			setQuotaHeaders(reply.Headers, resp)
		case domain.KindConfiguration:
			reply.Status = http.StatusInternalServerError
		case domain.KindUnavailable:
			reply.Status = http.StatusServiceUnavailable
		}
	}

	if reply.Status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", reply.Status), zap.Error(err))
	} else {
		log.Info("request rejected", zap.Int("status", reply.Status), zap.String("reason", body.Error))
	}

	reply.Body, _ = json.Marshal(body)
	return reply
}

func setQuotaHeaders(headers map[string]string, resp domain.Response) {
	headers[HeaderRemaining] = strconv.Itoa(resp.Remaining)
	if resp.Limit > 0 {
		headers[HeaderLimit] = strconv.Itoa(resp.Limit)
	}
}
