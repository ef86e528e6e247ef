package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	sentinel := NotFound("expense not found")
	wrapped := fmt.Errorf("load expense: %w", sentinel)

	if !errors.Is(wrapped, sentinel) {
		t.Fatalf("expected wrapped error to match its sentinel")
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("expected wrapped error to match ErrNotFound")
	}
	if errors.Is(wrapped, ErrConflict) {
		t.Fatalf("did not expect ErrConflict match")
	}
	if Kind(wrapped) != ErrNotFound {
		t.Fatalf("expected kind ErrNotFound, got %v", Kind(wrapped))
	}
	if wrapped.Error() != "load expense: expense not found" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
}

func TestKindOfInfrastructureError(t *testing.T) {
	if Kind(errors.New("connection reset")) != nil {
		t.Fatalf("expected nil kind for plain error")
	}
	if Kind(Validationf("amount %s must be positive", "-1")) != ErrValidation {
		t.Fatalf("expected validation kind")
	}
}

func TestUnauthorizedKind(t *testing.T) {
	err := Unauthorized("invalid email or password")
	if Kind(err) != ErrUnauthorized {
		t.Fatalf("expected unauthorized kind, got %v", Kind(err))
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("unauthorized must not match forbidden")
	}
}
