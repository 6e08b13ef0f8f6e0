package gameserver

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
)

// ErrorDomain is the ErrorInfo domain attached to every game error status.
const ErrorDomain = "wayfarer"

// toStatus converts err into a gRPC status error. Game errors carry their
// Code as an ErrorInfo reason; the wrapped cause is never sent to clients.
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	ge := gameerr.ErrInternal
	errors.As(err, &ge)

	st := status.New(CodeFor(ge.Kind), ge.Message)
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   ge.Code,
		Domain:   ErrorDomain,
		Metadata: map[string]string{"kind": ge.Kind.String()},
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// CodeFor maps an error kind to its gRPC status code.
func CodeFor(k gameerr.Kind) codes.Code {
	switch k {
	case gameerr.KindValidation:
		return codes.InvalidArgument
	case gameerr.KindStateConflict:
		return codes.FailedPrecondition
	case gameerr.KindResource:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// ErrorReason returns the game error code carried by a status error, or ""
// when err has none.
func ErrorReason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}
