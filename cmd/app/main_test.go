package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

func urlRequest(method, path string) events.LambdaFunctionURLRequest {
	req := events.LambdaFunctionURLRequest{
		RawPath: path,
	}
	req.RequestContext.RequestID = "req-1"
	req.RequestContext.HTTP.Method = method
	req.RequestContext.HTTP.Path = path
	req.RequestContext.HTTP.SourceIP = "203.0.113.7"
	req.RequestContext.HTTP.UserAgent = "curl/8.5.0"
	return req
}

func TestHandleRequestRouting(t *testing.T) {
	handler := NewAppHandler(nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantType   string
		wantInBody string
	}{
		{"index", http.MethodGet, "/", http.StatusOK, "text/html; charset=utf-8", "<html"},
		{"info", http.MethodGet, "/api/info", http.StatusOK, "application/json", "Hello from Lambda"},
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound, "application/json", "Not Found"},
		{"wrong method on index", http.MethodPost, "/", http.StatusNotFound, "application/json", "Not Found"},
		{"wrong method on info", http.MethodDelete, "/api/info", http.StatusNotFound, "application/json", "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handler.HandleRequest(context.Background(), urlRequest(tt.method, tt.path))
			if err != nil {
				t.Fatalf("HandleRequest() error = %v", err)
			}

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := resp.Headers["Content-Type"]; got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if !strings.Contains(resp.Body, tt.wantInBody) {
				t.Errorf("Body = %q, want it to contain %q", resp.Body, tt.wantInBody)
			}

			// Every response carries the fixed cache and CORS headers
			if got := resp.Headers["Cache-Control"]; got != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", got)
			}
			if got := resp.Headers["Access-Control-Allow-Origin"]; got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
			}
		})
	}
}

func TestHandleInfoBody(t *testing.T) {
	handler := NewAppHandler(nil)

	resp, err := handler.HandleRequest(context.Background(), urlRequest(http.MethodGet, "/api/info"))
	if err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	var info InfoResponse
	if err := json.Unmarshal([]byte(resp.Body), &info); err != nil {
		t.Fatalf("info body is not valid JSON: %v", err)
	}

	if info.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want %q", info.RequestID, "req-1")
	}
	if info.IP != "203.0.113.7" {
		t.Errorf("IP = %q, want %q", info.IP, "203.0.113.7")
	}
	if info.UserAgent != "curl/8.5.0" {
		t.Errorf("UserAgent = %q, want %q", info.UserAgent, "curl/8.5.0")
	}
	if _, err := time.Parse(time.RFC3339, info.Now); err != nil {
		t.Errorf("Now = %q is not RFC 3339: %v", info.Now, err)
	}
}

func TestHandleNotFoundEchoesPath(t *testing.T) {
	handler := NewAppHandler(nil)

	resp, err := handler.HandleRequest(context.Background(), urlRequest(http.MethodGet, "/missing/page"))
	if err != nil {
		t.Fatalf("HandleRequest() error = %v", err)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("not-found body is not valid JSON: %v", err)
	}
	if body["path"] != "/missing/page" {
		t.Errorf("path = %q, want %q", body["path"], "/missing/page")
	}
}
