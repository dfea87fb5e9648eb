package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingerStub struct {
	err error
}

func (p pingerStub) Ping(context.Context) error { return p.err }

func TestHealthzAllDependenciesUp(t *testing.T) {
	handler := Healthz(pingerStub{}, pingerStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp.Body)
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", envelope)
	}
	if data["status"] != "ok" || data["db"] != "ok" || data["redis"] != "ok" {
		t.Fatalf("expected all-ok payload, got %v", data)
	}
}

func TestHealthzDegradedWhenRedisDown(t *testing.T) {
	handler := Healthz(pingerStub{}, pingerStub{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	if data["status"] != "degraded" || data["redis"] != "unreachable" {
		t.Fatalf("expected degraded redis payload, got %v", data)
	}
}

func TestHealthzUnconfiguredDependency(t *testing.T) {
	handler := Healthz(nil, pingerStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	if data["db"] != "unconfigured" {
		t.Fatalf("expected unconfigured db, got %v", data)
	}
}
