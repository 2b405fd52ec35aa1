package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/radiology-reports/internal/async"
	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/llm"
	"github.com/joseph-ayodele/radiology-reports/internal/ocr"
	"github.com/joseph-ayodele/radiology-reports/internal/pipeline"
)

// toStatus maps pipeline errors onto gRPC codes. Errors that already carry a status pass
// through unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var upstream *llm.UpstreamError
	switch {
	case errors.Is(err, llm.ErrInvalidInput),
		errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, pipeline.ErrInsufficientHistory):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ocr.ErrUnreadable),
		errors.Is(err, llm.ErrMissingCredentials):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &upstream):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, async.ErrQueueClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, llm.ErrMalformedResponse):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
