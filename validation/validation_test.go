package validation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/flowengine/errors"
)

func TestFieldErrors_AppError(t *testing.T) {
	if (FieldErrors{}).AppError() != nil {
		t.Error("expected nil AppError without failures")
	}
	if (FieldErrors{}).Messages() != nil {
		t.Error("expected nil messages without failures")
	}

	fe := FieldErrors{{Field: "a", Message: "is required"}, {Field: "b", Message: "is required"}}
	appErr := fe.AppError()
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %s, want INVALID_INPUT", appErr.Code)
	}
	if appErr.Message != "a: is required; b: is required" {
		t.Errorf("message = %q", appErr.Message)
	}
	got, ok := Fields(fmt.Errorf("decode: %w", appErr))
	if !ok || len(got) != 2 || got[1].Field != "b" {
		t.Errorf("Fields() = %v, %v", got, ok)
	}
}

func TestFields_NotValidation(t *testing.T) {
	for _, err := range []error{nil, fmt.Errorf("plain"), errors.NotFound("workflow", "wf")} {
		if _, ok := Fields(err); ok {
			t.Errorf("Fields(%v) should not report field failures", err)
		}
	}
}

func TestValidate(t *testing.T) {
	type Engine struct {
		Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
		ElevatedRoles []string      `mapstructure:"elevated_roles" validate:"min=1"`
	}
	type Config struct {
		Name       string   `json:"name" validate:"required"`
		Categories []string `json:"categories" validate:"omitempty,unique"`
		MaxTokens  int      `validate:"lte=32000"`
		Engine     Engine   `mapstructure:"engine"`
	}

	ok := Config{Name: "workflowd", Engine: Engine{Timeout: time.Minute, ElevatedRoles: []string{"admin"}}}
	if err := Validate(ok); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	err := Validate(Config{Categories: []string{"a", "a"}, MaxTokens: 40000})
	fields, found := Fields(err)
	if !found {
		t.Fatalf("expected field failures, got %v", err)
	}
	want := []string{
		"name: is required",
		"categories: must not contain duplicates",
		"max_tokens: must be at most 32000",
		"engine.timeout: must be greater than 0",
		"engine.elevated_roles: must have at least 1 items",
	}
	msgs := strings.Join(fields.Messages(), "\n")
	for _, w := range want {
		if !strings.Contains(msgs, w) {
			t.Errorf("missing %q in\n%s", w, msgs)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"MaxTokens": "max_tokens",
		"Name":      "name",
		"topK":      "top_k",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
