package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		Validation:      http.StatusBadRequest,
		Unauthenticated: http.StatusUnauthorized,
		NotFound:        http.StatusNotFound,
		Conflict:        http.StatusConflict,
		Internal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Errorf("%s.Status() = %d, want %d", kind, got, want)
		}
	}
}

func TestFromWrapped(t *testing.T) {
	base := New(Conflict, "Exercise name already exists")
	err := fmt.Errorf("create exercise: %w", base)
	got := From(err)
	if got.Kind != Conflict || got.Message != "Exercise name already exists" {
		t.Fatalf("unexpected %+v", got)
	}
	if !Is(err, Conflict) {
		t.Fatalf("Is(Conflict) = false")
	}
}

func TestFromPlainErrorIsInternal(t *testing.T) {
	cause := errors.New("connection reset")
	got := From(cause)
	if got.Kind != Internal {
		t.Fatalf("kind = %s, want internal", got.Kind)
	}
	if got.Message == cause.Error() {
		t.Fatalf("internal detail must not become the client message")
	}
	if !errors.Is(got, cause) {
		t.Fatalf("cause lost")
	}
}
