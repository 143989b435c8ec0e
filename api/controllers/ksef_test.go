package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marlink/accountant/pkg/config"
	pkgerrors "github.com/marlink/accountant/pkg/errors"
)

var testJobConfig = config.JobConfig{FailThreshold: 0.2, DefaultLimit: 25, MaxLimit: 500}

func TestResolveRunLimitDefault(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/jobs/ksef-batch", nil)
	limit, err := resolveRunLimit(r, testJobConfig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 25 {
		t.Fatalf("expected default 25, got %d", limit)
	}
}

func TestResolveRunLimitFromQuery(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/jobs/ksef-batch?limit=40", nil)
	limit, err := resolveRunLimit(r, testJobConfig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 40 {
		t.Fatalf("expected 40, got %d", limit)
	}
}

func TestResolveRunLimitFromJSONBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/jobs/ksef-batch", strings.NewReader(`{"limit":12}`))
	r.Header.Set("Content-Type", "application/json")
	limit, err := resolveRunLimit(r, testJobConfig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 12 {
		t.Fatalf("expected 12, got %d", limit)
	}
}

func TestResolveRunLimitRejectsBodyAboveMax(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/jobs/ksef-batch", strings.NewReader(`{"limit":501}`))
	r.Header.Set("Content-Type", "application/json")
	_, err := resolveRunLimit(r, testJobConfig)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveRunLimitRejectsNonNumericQuery(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/jobs/ksef-batch?limit=abc", nil)
	_, err := resolveRunLimit(r, testJobConfig)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequireKsefConfigRejectsHalfPEMPair(t *testing.T) {
	cfg := &config.Config{KSeF: config.KSeFConfig{
		BaseURL:    "https://ksef.example.gov.pl",
		CertPEMB64: "Y2VydA==",
	}}
	if _, err := requireKsefConfig(cfg); err == nil {
		t.Fatal("expected configuration error")
	}
}
