package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/vango-go/voicegate/pkg/agora"
	"github.com/vango-go/voicegate/pkg/core"
	"github.com/vango-go/voicegate/pkg/gemini"
)

func TestFromErrorNil(t *testing.T) {
	out, status := FromError(nil, "req_1")
	if out != nil || status != http.StatusOK {
		t.Fatalf("expected nil/200, got %v/%d", out, status)
	}
}

func TestFromErrorCoreError(t *testing.T) {
	err := core.NewNotFoundError("session xyz not found")
	out, status := FromError(err, "req_1")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if out.Type != core.ErrNotFound {
		t.Fatalf("expected not_found_error, got %s", out.Type)
	}
	if out.RequestID != "req_1" {
		t.Fatalf("expected request id stamped, got %q", out.RequestID)
	}
}

func TestFromErrorWrappedCoreError(t *testing.T) {
	err := fmt.Errorf("starting session: %w", core.NewInvalidRequestError("requester_id is required"))
	out, status := FromError(err, "req_1")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if out.Type != core.ErrInvalidRequest {
		t.Fatalf("expected invalid_request_error, got %s", out.Type)
	}
}

func TestFromErrorAgora(t *testing.T) {
	err := &agora.Error{StatusCode: 403, Message: "invalid credentials", Body: map[string]any{"reason": "invalid credentials"}}
	out, status := FromError(err, "req_1")
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}
	if out.Type != core.ErrProvisioning {
		t.Fatalf("expected provisioning_error, got %s", out.Type)
	}
	if out.VendorError == nil {
		t.Fatal("expected vendor body carried through")
	}
}

func TestFromErrorGemini(t *testing.T) {
	err := &gemini.Error{Type: gemini.ErrRateLimit, Message: "quota exceeded", Code: "RESOURCE_EXHAUSTED"}
	out, status := FromError(err, "req_1")
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}
	if out.Type != core.ErrVendor {
		t.Fatalf("expected vendor_error, got %s", out.Type)
	}
	if out.Code != "RESOURCE_EXHAUSTED" {
		t.Fatalf("expected vendor code preserved, got %q", out.Code)
	}
}

func TestFromErrorContext(t *testing.T) {
	out, status := FromError(context.DeadlineExceeded, "req_1")
	if status != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", status)
	}
	if out.Type != core.ErrAPI {
		t.Fatalf("expected api_error, got %s", out.Type)
	}

	out, status = FromError(context.Canceled, "req_1")
	if status != http.StatusRequestTimeout {
		t.Fatalf("expected 408, got %d", status)
	}
	if out.Code != "cancelled" {
		t.Fatalf("expected cancelled code, got %q", out.Code)
	}
}

func TestFromErrorUnknown(t *testing.T) {
	out, status := FromError(errors.New("disk on fire"), "req_1")
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if out.Message != "internal error" {
		t.Fatalf("unknown error details should not leak, got %q", out.Message)
	}
}
