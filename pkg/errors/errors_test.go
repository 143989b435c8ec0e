package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeTransport, cause, "submission failed")

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to satisfy errors.Is")
	}
	if err.Code() != CodeTransport {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeDataIntegrity, "invoice items missing")
	outer := fmt.Errorf("processing item: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeDataIntegrity {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", meta.HTTPStatus)
	}
}

func TestMetadataTaxonomy(t *testing.T) {
	if MetadataFor(CodeConfiguration).Retryable {
		t.Fatal("configuration errors are not retryable")
	}
	if !MetadataFor(CodeTransport).Retryable {
		t.Fatal("transport errors are retryable")
	}
	if MetadataFor(CodeDataIntegrity).Retryable {
		t.Fatal("data integrity errors are not retryable")
	}
	if MetadataFor(CodeConflict).HTTPStatus != http.StatusConflict {
		t.Fatal("conflict maps to 409")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodePersistence, errors.New("deadlock"), "update submission")
	d := Dump(err)
	if d.Code != CodePersistence {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", d.Chain)
	}
}
