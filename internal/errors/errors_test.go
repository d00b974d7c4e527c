package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := stderrors.New("boom")
	tests := []struct {
		name       string
		err        *AppError
		errorType  ErrorType
		statusCode int
	}{
		{"validation", NewValidationError("bad", cause), ErrorTypeValidation, http.StatusBadRequest},
		{"decode", NewDecodeError("bad image", cause), ErrorTypeDecode, http.StatusBadRequest},
		{"invalid reference", NewInvalidReferenceError("bad ref", cause), ErrorTypeInvalidReference, http.StatusBadRequest},
		{"network", NewNetworkError("fetch", cause), ErrorTypeNetwork, http.StatusBadGateway},
		{"processing", NewProcessingError("proc", cause), ErrorTypeProcessing, http.StatusUnprocessableEntity},
		{"timeout", NewTimeoutError("slow", cause), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"not found", NewNotFoundError("missing", nil), ErrorTypeNotFound, http.StatusNotFound},
		{"internal", NewInternalError("oops", nil), ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.errorType {
				t.Errorf("Type = %s, want %s", tt.err.Type, tt.errorType)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.statusCode)
			}
			if !IsType(tt.err, tt.errorType) {
				t.Error("IsType returned false for its own type")
			}
		})
	}
}

func TestIsType_Wrapped(t *testing.T) {
	base := NewInvalidReferenceError("zero length reference", nil)
	wrapped := fmt.Errorf("run protocol: %w", base)

	if !IsType(wrapped, ErrorTypeInvalidReference) {
		t.Error("expected wrapped AppError to be detected")
	}
	if GetStatusCode(wrapped) != http.StatusBadRequest {
		t.Errorf("GetStatusCode = %d, want 400", GetStatusCode(wrapped))
	}
	if IsType(stderrors.New("plain"), ErrorTypeInvalidReference) {
		t.Error("plain error must not match")
	}
	if GetStatusCode(stderrors.New("plain")) != http.StatusInternalServerError {
		t.Error("plain error should map to 500")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := NewDecodeError("cannot decode", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if err.Error() != "decode: cannot decode (caused by: root cause)" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
