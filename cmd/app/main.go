package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jrzesz33/rez_deploy/internal/logging"
)

// AppHandler serves the deployed site over its Function URL
type AppHandler struct {
	logger *slog.Logger
}

// NewAppHandler creates a new app handler instance
func NewAppHandler(logger *slog.Logger) *AppHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppHandler{logger: logger}
}

// InfoResponse is the body served at /api/info
type InfoResponse struct {
	Message   string `json:"message"`
	Now       string `json:"now"`
	RequestID string `json:"requestId"`
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>lambda-example</title>
</head>
<body>
<h1>It works</h1>
<p>Served from a Lambda Function URL. Try <a href="/api/info">/api/info</a>.</p>
</body>
</html>
`

// HandleRequest routes Function URL requests to the two served paths
func (h *AppHandler) HandleRequest(ctx context.Context, request events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	method := request.RequestContext.HTTP.Method
	path := request.RawPath
	if path == "" {
		path = request.RequestContext.HTTP.Path
	}

	h.logger.DebugContext(ctx, "received request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", request.RequestContext.RequestID),
	)

	switch {
	case method == http.MethodGet && path == "/":
		return h.handleIndex(), nil
	case method == http.MethodGet && path == "/api/info":
		return h.handleInfo(request), nil
	default:
		return h.handleNotFound(path), nil
	}
}

// baseHeaders apply to every response regardless of route
func baseHeaders(contentType string) map[string]string {
	return map[string]string{
		"Content-Type":                contentType,
		"Cache-Control":               "no-store",
		"Access-Control-Allow-Origin": "*",
	}
}

func (h *AppHandler) handleIndex() events.LambdaFunctionURLResponse {
	return events.LambdaFunctionURLResponse{
		StatusCode: http.StatusOK,
		Headers:    baseHeaders("text/html; charset=utf-8"),
		Body:       indexHTML,
	}
}

func (h *AppHandler) handleInfo(request events.LambdaFunctionURLRequest) events.LambdaFunctionURLResponse {
	info := InfoResponse{
		Message:   "Hello from Lambda",
		Now:       time.Now().UTC().Format(time.RFC3339),
		RequestID: request.RequestContext.RequestID,
		IP:        request.RequestContext.HTTP.SourceIP,
		UserAgent: request.RequestContext.HTTP.UserAgent,
	}

	body, err := json.Marshal(info)
	if err != nil {
		return events.LambdaFunctionURLResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    baseHeaders("application/json"),
			Body:       `{"error":"Internal Server Error"}`,
		}
	}

	return events.LambdaFunctionURLResponse{
		StatusCode: http.StatusOK,
		Headers:    baseHeaders("application/json"),
		Body:       string(body),
	}
}

func (h *AppHandler) handleNotFound(path string) events.LambdaFunctionURLResponse {
	body, _ := json.Marshal(map[string]string{
		"error": "Not Found",
		"path":  path,
	})

	return events.LambdaFunctionURLResponse{
		StatusCode: http.StatusNotFound,
		Headers:    baseHeaders("application/json"),
		Body:       string(body),
	}
}

func main() {
	logger := logging.New("app")
	handler := NewAppHandler(logger)
	lambda.Start(handler.HandleRequest)
}
