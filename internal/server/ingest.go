package server

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type ingestItem struct {
	SourcePath   string `json:"source_path"`
	HashHex      string `json:"content_hash_hex,omitempty"`
	Deduplicated bool   `json:"deduplicated"`
	Error        string `json:"error,omitempty"`
}

type ingestDirectoryResponse struct {
	Scanned      uint32       `json:"scanned"`
	Matched      uint32       `json:"matched"`
	Succeeded    uint32       `json:"succeeded"`
	Deduplicated uint32       `json:"deduplicated"`
	Failed       uint32       `json:"failed"`
	Results      []ingestItem `json:"results"`
}

// IngestDirectory: {root_path, skip_hidden?} -> ingestDirectoryResponse. Matching PDFs are
// queued for processing; the call does not wait for them.
func (s *AnalysisService) IngestDirectory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.ingestor == nil {
		return nil, status.Error(codes.Unimplemented, "ingestion is not enabled")
	}
	root, err := requiredString(req, "root_path")
	if err != nil {
		return nil, err
	}
	// default skipHidden := true when the field is absent
	skipHidden := true
	if v, ok := req.GetFields()["skip_hidden"]; ok {
		skipHidden = v.GetBoolValue()
	}

	s.logger.Info("rpc.ingest_directory.start", "root", root, "skip_hidden", skipHidden)
	results, stats, err := s.ingestor.IngestDirectory(ctx, strings.TrimSpace(root), skipHidden)
	if err != nil {
		s.logger.Error("rpc.ingest_directory.failed", "root", root, "error", err)
		return nil, status.Errorf(codes.InvalidArgument, "ingest directory: %v", err)
	}
	s.logger.Info("rpc.ingest_directory.ok", "root", root, "scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed)

	out := ingestDirectoryResponse{
		Scanned:      stats.Scanned,
		Matched:      stats.Matched,
		Succeeded:    stats.Succeeded,
		Deduplicated: stats.Deduplicated,
		Failed:       stats.Failed,
		Results:      make([]ingestItem, 0, len(results)),
	}
	for _, r := range results {
		out.Results = append(out.Results, ingestItem{
			SourcePath:   r.SourcePath,
			HashHex:      r.HashHex,
			Deduplicated: r.Deduplicated,
			Error:        r.Err,
		})
	}
	return encodeStruct(out)
}
