package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"todolist/internal/service"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "expired"), service.ErrPermission},
		{"permission denied", status.Error(codes.PermissionDenied, "rules"), service.ErrPermission},
		{"unavailable", status.Error(codes.Unavailable, "down"), service.ErrUnavailable},
		{"internal", status.Error(codes.Internal, "boom"), service.ErrUnavailable},
		{"plain error", errors.New("connection reset"), service.ErrUnavailable},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), context.DeadlineExceeded},
		{"context deadline", context.DeadlineExceeded, context.DeadlineExceeded},
		{"canceled", context.Canceled, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("wrapError(%v) = %v, want errors.Is %v", tt.err, got, tt.want)
			}
		})
	}

	if wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
}

func TestInvalidPathsNeverReachFirestore(t *testing.T) {
	c := &Client{}
	ctx := context.Background()

	if _, _, err := c.Get(ctx, "users/u1/tasks"); !errors.Is(err, service.ErrInvalidPath) {
		t.Errorf("Get on collection path: %v", err)
	}
	if err := c.Set(ctx, "users//tasks/a", nil); !errors.Is(err, service.ErrInvalidPath) {
		t.Errorf("Set with empty segment: %v", err)
	}
	if err := c.Delete(ctx, ""); !errors.Is(err, service.ErrInvalidPath) {
		t.Errorf("Delete empty path: %v", err)
	}
	if _, err := c.List(ctx, "users/u1"); !errors.Is(err, service.ErrInvalidPath) {
		t.Errorf("List on document path: %v", err)
	}
	if _, err := c.Query(ctx, "users/u1", "priority", "High"); !errors.Is(err, service.ErrInvalidPath) {
		t.Errorf("Query on document path: %v", err)
	}
}
