package grpccas

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/cryptoconditions/store"
)

// mapErr converts a store error into a gRPC status.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, store.ErrNotFound.Error())
	case errors.Is(err, store.ErrInvalidCID):
		return status.Error(codes.InvalidArgument, store.ErrInvalidCID.Error())
	case errors.Is(err, store.ErrCIDMismatch):
		return status.Error(codes.DataLoss, store.ErrCIDMismatch.Error())
	case errors.Is(err, store.ErrImmutable):
		return status.Error(codes.AlreadyExists, store.ErrImmutable.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC converts a gRPC status back into the matching store error.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return store.ErrNotFound
	case codes.InvalidArgument:
		return store.ErrInvalidCID
	case codes.DataLoss:
		return store.ErrCIDMismatch
	case codes.AlreadyExists:
		return store.ErrImmutable
	default:
		return err
	}
}
