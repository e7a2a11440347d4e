package gitlab

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"string message", `{"message":"404 Project Not Found"}`, "404 Project Not Found"},
		{"field errors", `{"message":{"path":["has already been taken"]}}`, `{"path":["has already been taken"]}`},
		{"error member", `{"error":"invalid_token"}`, "invalid_token"},
		{"not json", "Bad Gateway\n", "Bad Gateway"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readErrorMessage(strings.NewReader(tt.body)); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	notFound := fmt.Errorf("lookup: %w", &APIError{StatusCode: http.StatusNotFound})
	taken := &APIError{StatusCode: http.StatusBadRequest, Message: `{"path":["has already been taken"]}`}
	badRequest := &APIError{StatusCode: http.StatusBadRequest, Message: "name is invalid"}
	conflict := &APIError{StatusCode: http.StatusConflict}

	if !IsNotFound(notFound) {
		t.Error("expected wrapped 404 to be not found")
	}
	if IsNotFound(taken) {
		t.Error("400 is not a not found")
	}
	if !IsAlreadyTaken(taken) || !IsAlreadyTaken(conflict) {
		t.Error("expected 'already taken' and 409 to be recognised")
	}
	if IsAlreadyTaken(badRequest) {
		t.Error("an unrelated 400 is not 'already taken'")
	}
	if !IsConflict(conflict) {
		t.Error("expected 409 to be a conflict")
	}
}
