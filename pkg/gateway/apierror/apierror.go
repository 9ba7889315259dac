package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-go/voicegate/pkg/agora"
	"github.com/vango-go/voicegate/pkg/core"
	"github.com/vango-go/voicegate/pkg/gemini"
)

type Envelope struct {
	Error *core.Error `json:"error"`
}

func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	// Context timeouts/cancellation.
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request cancelled",
			Code:      "cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		return &out, statusFromType(coreErr.Type)
	}

	// RTC vendor errors surface as provisioning failures. The vendor status
	// and body ride along untouched.
	var agoraErr *agora.Error
	if errors.As(err, &agoraErr) && agoraErr != nil {
		return &core.Error{
			Type:        core.ErrProvisioning,
			Message:     agoraErr.Message,
			RequestID:   requestID,
			VendorError: agoraErr.Body,
		}, http.StatusBadGateway
	}

	// LLM vendor errors.
	var geminiErr *gemini.Error
	if errors.As(err, &geminiErr) && geminiErr != nil {
		return &core.Error{
			Type:        core.ErrVendor,
			Message:     geminiErr.Message,
			Code:        geminiErr.Code,
			RequestID:   requestID,
			VendorError: geminiErr.VendorError,
		}, http.StatusBadGateway
	}

	// Unknown errors: treat as internal API error (do not leak details by default).
	apiErr := core.NewAPIError("internal error")
	apiErr.RequestID = requestID
	return apiErr, http.StatusInternalServerError
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrAuthentication:
		return http.StatusUnauthorized
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrConfiguration:
		return http.StatusInternalServerError
	case core.ErrProvisioning, core.ErrVendor:
		return http.StatusBadGateway
	case core.ErrAPI:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
