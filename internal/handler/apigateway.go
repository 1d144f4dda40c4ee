package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":   "*",
	"Access-Control-Allow-Methods":  "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers":  "Content-Type, " + HeaderIdentity,
	"Access-Control-Expose-Headers": HeaderRemaining + ", " + HeaderLimit + ", " + HeaderRequestID,
}

// HandleAPIGateway routes an API Gateway v2 (or Lambda function URL) event.
func (h *Handler) HandleAPIGateway(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := event.RequestContext.HTTP.Method
	path := strings.TrimSuffix(event.RawPath, "/")

	switch {
	case method == http.MethodOptions:
		return toAPIGateway(Reply{Status: http.StatusNoContent}), nil

	case method == http.MethodPost && (path == "" || path == "/translate"):
		body := []byte(event.Body)
		if event.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(event.Body)
			if err != nil {
				return toAPIGateway(Reply{
					Status:  http.StatusBadRequest,
					Headers: map[string]string{"Content-Type": "application/json"},
					Body:    []byte(`{"error":"invalid base64 body"}`),
				}), nil
			}
			body = decoded
		}
		return toAPIGateway(h.Translate(ctx, headerValue(event.Headers, HeaderIdentity), body)), nil

	case method == http.MethodGet && (path == "" || path == "/privacy"):
		return toAPIGateway(Reply{
			Status:  http.StatusOK,
			Headers: map[string]string{"Content-Type": "text/html; charset=utf-8"},
			Body:    InfoPage(),
		}), nil

	case method == http.MethodGet && path == "/healthz":
		return toAPIGateway(Reply{Status: http.StatusOK, Body: []byte("ok")}), nil
	}

	return toAPIGateway(Reply{
		Status:  http.StatusNotFound,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"error":"not found"}`),
	}), nil
}

func toAPIGateway(reply Reply) events.APIGatewayV2HTTPResponse {
	headers := make(map[string]string, len(corsHeaders)+len(reply.Headers))
	for k, v := range corsHeaders {
		headers[k] = v
	}
	for k, v := range reply.Headers {
		headers[k] = v
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: reply.Status,
		Headers:    headers,
		Body:       string(reply.Body),
	}
}

// headerValue looks up name case-insensitively; API Gateway lowercases
// header names.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[strings.ToLower(name)]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
