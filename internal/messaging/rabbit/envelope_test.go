package rabbit

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

func TestStatusFromError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"items required", domain.ErrItemsRequired, 400},
		{"invalid pagination", domain.ErrInvalidPagination, 400},
		{"products invalid", domain.ErrProductsInvalid, 400},
		{"status unknown", domain.ErrStatusUnknown, 400},
		{"creation failed", domain.ErrOrderCreationFailed, 400},
		{"malformed payload", errMalformedRequest, 400},
		{"not found", domain.ErrOrderNotFound, 404},
		{"invalid transition", domain.ErrInvalidTransition, 409},
		{"version conflict", domain.ErrOrderVersionConflict, 409},
		{"catalog unavailable", domain.ErrCatalogUnavailable, 503},
		{"product missing", domain.ErrProductMissing, 500},
		{"unknown error", errors.New("boom"), 500},
		{"wrapped not found", fmt.Errorf("load: %w", domain.ErrOrderNotFound), 404},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := statusFromError(tc.err); got != tc.want {
				t.Fatalf("statusFromError(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestNewSuccessEnvelope(t *testing.T) {
	t.Parallel()

	body, err := newSuccessEnvelope(map[string]string{"id": "order-1"})
	if err != nil {
		t.Fatalf("newSuccessEnvelope: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Error != nil {
		t.Fatalf("unexpected error in success envelope: %+v", env.Error)
	}
	if string(env.Data) != `{"id":"order-1"}` {
		t.Fatalf("unexpected data: %s", env.Data)
	}
}

func TestNewErrorEnvelope(t *testing.T) {
	t.Parallel()

	var env envelope
	if err := json.Unmarshal(newErrorEnvelope(domain.ErrOrderNotFound), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Error == nil {
		t.Fatal("expected error in envelope")
	}
	if env.Error.Status != 404 {
		t.Fatalf("expected status 404, got %d", env.Error.Status)
	}
	if env.Error.Message != domain.ErrOrderNotFound.Error() {
		t.Fatalf("unexpected message: %q", env.Error.Message)
	}

	// Внутренние причины не сериализуются наружу.
	if err := json.Unmarshal(newErrorEnvelope(errors.New("pq: connection refused")), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Error.Status != 500 || env.Error.Message != "internal error" {
		t.Fatalf("internal error must be masked, got %+v", env.Error)
	}
}
