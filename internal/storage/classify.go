package storage

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Failure is a coarse category of backend error, used to suggest a fix.
type Failure string

const (
	FailureNone          Failure = ""
	FailureNotFound      Failure = "not_found"
	FailurePermission    Failure = "permission"
	FailureUnavailable   Failure = "unavailable"
	FailureConfiguration Failure = "configuration"
	FailureUnknown       Failure = "unknown"
)

// Hint returns an operator-facing suggestion for the failure.
func (f Failure) Hint() string {
	switch f {
	case FailureNotFound:
		return "The requested record does not exist."
	case FailurePermission:
		return "Access was denied. Check the service account roles or security rules."
	case FailureUnavailable:
		return "The store is unreachable. Check network connectivity and the backend status."
	case FailureConfiguration:
		return "The store configuration is invalid. Check the project, database and credentials settings."
	case FailureUnknown:
		return "Unexpected error. See the details above."
	}
	return ""
}

// Classify maps a backend error to a Failure. It understands gRPC status
// errors as returned by Firestore, network errors and Redis auth replies.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, ErrNotFound) {
		return FailureNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureUnavailable
	}

	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		switch s.Code() {
		case codes.PermissionDenied, codes.Unauthenticated:
			return FailurePermission
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return FailureUnavailable
		case codes.NotFound, codes.InvalidArgument, codes.FailedPrecondition:
			return FailureConfiguration
		}
		return FailureUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureUnavailable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailureUnavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "noauth"), strings.Contains(msg, "wrongpass"), strings.Contains(msg, "permission"):
		return FailurePermission
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "unavailable"):
		return FailureUnavailable
	case strings.Contains(msg, "project"), strings.Contains(msg, "credentials"):
		return FailureConfiguration
	}
	return FailureUnknown
}
