package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Failure
	}{
		{"nil", nil, FailureNone},
		{"not found", fmt.Errorf("query: %w", ErrNotFound), FailureNotFound},
		{"deadline", context.DeadlineExceeded, FailureUnavailable},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "Missing or insufficient permissions."), FailurePermission},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "bad token"), FailurePermission},
		{"grpc unavailable", status.Error(codes.Unavailable, "connection reset"), FailureUnavailable},
		{"grpc wrapped", fmt.Errorf("query usage_data: %w", status.Error(codes.Unavailable, "down")), FailureUnavailable},
		{"grpc database not found", status.Error(codes.NotFound, "database (default) does not exist for project"), FailureConfiguration},
		{"grpc internal", status.Error(codes.Internal, "oops"), FailureUnknown},
		{"dial error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, FailureUnavailable},
		{"redis auth", errors.New("NOAUTH Authentication required."), FailurePermission},
		{"redis wrong password", errors.New("WRONGPASS invalid username-password pair"), FailurePermission},
		{"missing credentials", errors.New("google: could not find default credentials"), FailureConfiguration},
		{"other", errors.New("something odd"), FailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestFailure_Hint(t *testing.T) {
	if FailureNone.Hint() != "" {
		t.Error("Expected no hint for FailureNone")
	}
	for _, f := range []Failure{FailureNotFound, FailurePermission, FailureUnavailable, FailureConfiguration, FailureUnknown} {
		if f.Hint() == "" {
			t.Errorf("Expected hint for %s", f)
		}
	}
}
