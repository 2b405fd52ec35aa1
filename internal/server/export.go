package server

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const maxExportRows = 5000

// ExportAnalyses: {limit?} -> XLSX workbook bytes of the most recent runs.
func (s *AnalysisService) ExportAnalyses(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export is not enabled")
	}
	limit := int(req.GetFields()["limit"].GetNumberValue())
	if limit < 0 || limit > maxExportRows {
		return nil, status.Errorf(codes.InvalidArgument, "limit must be between 0 and %d", maxExportRows)
	}

	xlsx, err := s.exporter.AnalysesXLSX(ctx, limit)
	if err != nil {
		s.logger.Error("rpc.export_analyses.failed", "limit", limit, "error", err)
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(xlsx), nil
}
