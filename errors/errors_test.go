package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNew_UsesCodeSpec(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		status    int
		retryable bool
	}{
		{ErrCodeNotFound, http.StatusNotFound, false},
		{ErrCodeTimeout, http.StatusGatewayTimeout, true},
		{ErrCodeDatabaseError, http.StatusInternalServerError, true},
		{ErrorCode("SOMETHING_NEW"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "msg")
			if err.HTTPStatus != tt.status || err.Retryable != tt.retryable {
				t.Errorf("New(%s) = status %d retryable %v, want %d %v",
					tt.code, err.HTTPStatus, err.Retryable, tt.status, tt.retryable)
			}
		})
	}
}

func TestCodeSpecs_Complete(t *testing.T) {
	for code, s := range codeSpecs {
		if s.status < 400 || s.status > 599 {
			t.Errorf("%s: status %d is not an error status", code, s.status)
		}
		if s.kind == "" {
			t.Errorf("%s: missing kind", code)
		}
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		status    int
		retryable bool
	}{
		{"ServiceUnavailable", ServiceUnavailable("api"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable, true},
		{"Timeout", Timeout("query"), ErrCodeTimeout, http.StatusGatewayTimeout, true},
		{"RateLimited", RateLimited(time.Minute), ErrCodeRateLimited, http.StatusTooManyRequests, true},
		{"NotFound", NotFound("workflow", "wf-1"), ErrCodeNotFound, http.StatusNotFound, false},
		{"Conflict", Conflict("version mismatch"), ErrCodeConflict, http.StatusConflict, false},
		{"InvalidInput", InvalidInput("inputs", "must be an object"), ErrCodeInvalidInput, http.StatusBadRequest, false},
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, http.StatusBadRequest, false},
		{"Unauthorized", Unauthorized(""), ErrCodeUnauthorized, http.StatusUnauthorized, false},
		{"Forbidden", Forbidden(""), ErrCodeForbidden, http.StatusForbidden, false},
		{"InvalidToken", InvalidToken(), ErrCodeInvalidToken, http.StatusUnauthorized, false},
		{"Internal", Internal(nil), ErrCodeInternal, http.StatusInternalServerError, false},
		{"DatabaseError", DatabaseError(nil), ErrCodeDatabaseError, http.StatusInternalServerError, true},
		{"ExternalServiceError", ExternalServiceError("llm", nil), ErrCodeExternalService, http.StatusBadGateway, true},
		{"InvalidGraph", InvalidGraph("two inputs"), ErrCodeInvalidGraph, http.StatusBadRequest, false},
		{"CycleDetected", CycleDetected(1, 3), ErrCodeCycleDetected, http.StatusBadRequest, false},
		{"DanglingReference", DanglingReference("x"), ErrCodeDanglingReference, http.StatusBadRequest, false},
		{"NoStartNode", NoStartNode(), ErrCodeNoStartNode, http.StatusBadRequest, false},
		{"UnknownNodeType", UnknownNodeType("webhook"), ErrCodeUnknownNodeType, http.StatusBadRequest, false},
		{"NodeTypeInactive", NodeTypeInactive("llm"), ErrCodeNodeTypeInactive, http.StatusBadRequest, false},
		{"NodeConfigInvalid", NodeConfigInvalid("n1", []string{"prompt is required"}), ErrCodeNodeConfigInvalid, http.StatusBadRequest, false},
		{"WorkflowNotPublished", WorkflowNotPublished("wf"), ErrCodeWorkflowNotPublished, http.StatusForbidden, false},
		{"InsufficientCredits", InsufficientCredits(15), ErrCodeInsufficientCredits, http.StatusPaymentRequired, false},
		{"NodeExecutionFailed", NodeExecutionFailed("n1", nil), ErrCodeNodeExecutionFailed, http.StatusUnprocessableEntity, false},
		{"ExecutionTimeout", ExecutionTimeout("e1"), ErrCodeExecutionTimeout, http.StatusGatewayTimeout, false},
		{"ExecutionCancelled", ExecutionCancelled("e1"), ErrCodeExecutionCancelled, http.StatusConflict, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("code = %s, want %s", tc.err.Code, tc.code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("status = %d, want %d", tc.err.HTTPStatus, tc.status)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("retryable = %v, want %v", tc.err.Retryable, tc.retryable)
			}
			if tc.err.Message == "" {
				t.Error("message should not be empty")
			}
		})
	}
}

func TestConstructorDetails(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want map[string]any
	}{
		{"not found", NotFound("workflow", "wf-1"), map[string]any{"resource": "workflow", "id": "wf-1"}},
		{"not found without id", NotFound("workflow", ""), map[string]any{"resource": "workflow"}},
		{"invalid input", InvalidInput("inputs", "x"), map[string]any{"field": "inputs"}},
		{"invalid input without field", InvalidInput("", "x"), map[string]any{}},
		{"rate limited", RateLimited(90 * time.Second), map[string]any{"retry_after_seconds": 90}},
		{"credits", InsufficientCredits(15), map[string]any{"required": int64(15)}},
		{"cycle", CycleDetected(1, 3), map[string]any{"sorted": 1, "total": 3}},
		{"cancelled", ExecutionCancelled("e1"), map[string]any{"execution_id": "e1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Details == nil {
				t.Fatal("details should be initialized")
			}
			if len(tc.err.Details) != len(tc.want) {
				t.Errorf("details = %v, want %v", tc.err.Details, tc.want)
			}
			for k, v := range tc.want {
				if tc.err.Details[k] != v {
					t.Errorf("details[%s] = %v, want %v", k, tc.err.Details[k], v)
				}
			}
		})
	}
}

func TestDefaultMessages(t *testing.T) {
	if got := Unauthorized("").Message; got != "Authentication required." {
		t.Errorf("Unauthorized default = %q", got)
	}
	if got := Unauthorized("bad token").Message; got != "bad token" {
		t.Errorf("Unauthorized custom = %q", got)
	}
	if got := Forbidden("").Message; !strings.Contains(got, "permission") {
		t.Errorf("Forbidden default = %q", got)
	}
}

func TestAppError_Builders(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NotFound("item", "1").
		WithCause(cause).
		WithDetails(map[string]any{"extra": "info"}).
		WithDetail("extra", "overwritten").
		WithStatus(http.StatusGone)

	if !stderrors.Is(err, cause) {
		t.Error("cause should be reachable with errors.Is")
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") || !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Details["extra"] != "overwritten" || err.Details["resource"] != "item" {
		t.Errorf("details = %v", err.Details)
	}
	if err.HTTPStatus != http.StatusGone {
		t.Errorf("status = %d", err.HTTPStatus)
	}

	if Timeout("x").Permanent().Retryable {
		t.Error("Permanent should clear Retryable")
	}
	if got := NoStartNode().Error(); got != "NO_START_NODE: Workflow has no start node." {
		t.Errorf("Error() without cause = %q", got)
	}
}

func TestAppError_NilDetails(t *testing.T) {
	if Internal(nil).WithDetails(nil).Details == nil {
		t.Error("WithDetails(nil) should still initialize the map")
	}
	bare := &AppError{}
	if bare.WithDetail("key", "value").Details["key"] != "value" {
		t.Error("WithDetail should initialize the map")
	}
}

func TestToResponse(t *testing.T) {
	resp := NotFound("user", "42").WithCause(fmt.Errorf("sql: no rows")).ToResponse()
	if resp.Error.Code != ErrCodeNotFound || resp.Error.Kind != KindResource || resp.Error.Retryable {
		t.Errorf("body = %+v", resp.Error)
	}
	if resp.Error.Details["resource"] != "user" {
		t.Error("details should be carried over")
	}
	if k := Internal(fmt.Errorf("boom")).ToResponse().Error.Kind; k != KindInternal {
		t.Errorf("internal kind = %s", k)
	}
	if k := New("SOMETHING_NEW", "x").ToResponse().Error.Kind; k != KindInternal {
		t.Errorf("unregistered code kind = %s", k)
	}
	if resp.RequestID != "" {
		t.Errorf("ToResponse should not set a request id, got %q", resp.RequestID)
	}
	if id := Forbidden("").ResponseFor("req-7").RequestID; id != "req-7" {
		t.Errorf("ResponseFor request id = %q", id)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("x", "")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := AsAppError(wrapped)
	if !ok || got != appErr {
		t.Fatal("AsAppError should find the error through wrapping")
	}
	if !IsAppError(wrapped) {
		t.Error("IsAppError should be true for wrapped AppError")
	}
	if _, ok := AsAppError(fmt.Errorf("plain")); ok || IsAppError(fmt.Errorf("plain")) {
		t.Error("plain errors are not AppErrors")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	orig := NotFound("item", "1")
	if Wrap(orig) != orig {
		t.Error("Wrap should pass an AppError through")
	}
	if Wrap(fmt.Errorf("outer: %w", orig)) != orig {
		t.Error("Wrap should unwrap to the inner AppError")
	}

	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal || got.Cause != plain {
		t.Errorf("Wrap(plain) = %+v", got)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"forbidden", Forbidden(""), KindAuthorization},
		{"not published", WorkflowNotPublished("wf"), KindAuthorization},
		{"unknown type", UnknownNodeType("x"), KindValidation},
		{"bad config", NodeConfigInvalid("n", []string{"p"}), KindValidation},
		{"not found", NotFound("workflow", "1"), KindResource},
		{"credits", InsufficientCredits(2), KindResource},
		{"node failed", NodeExecutionFailed("n", fmt.Errorf("boom")), KindExecution},
		{"cancelled", ExecutionCancelled("e"), KindExecution},
		{"timeout", ExecutionTimeout("e"), KindTimeout},
		{"cycle", CycleDetected(0, 2), KindIntegrity},
		{"dangling", DanglingReference("z"), KindIntegrity},
		{"wrapped", fmt.Errorf("run: %w", NoStartNode()), KindIntegrity},
		{"plain", fmt.Errorf("boom"), KindInternal},
		{"database", DatabaseError(nil), KindInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNodeConfigInvalid_JoinsProblems(t *testing.T) {
	err := NodeConfigInvalid("summarize", []string{"prompt is required", "model is required"})
	if !strings.Contains(err.Message, "prompt is required; model is required") {
		t.Errorf("message = %q", err.Message)
	}
	if err.Details["node_id"] != "summarize" {
		t.Errorf("node_id = %v", err.Details["node_id"])
	}
}

func TestNodeExecutionFailed_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("provider down")
	err := NodeExecutionFailed("n1", cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the node's error")
	}
	if !strings.Contains(err.Message, "provider down") {
		t.Errorf("message = %q", err.Message)
	}
	if NodeExecutionFailed("n1", nil).Message != `Node "n1" failed.` {
		t.Error("message without cause should not mention one")
	}
}
