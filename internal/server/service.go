package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "radiology.v1.AnalysisService"

// AnalysisServiceServer is the server API for radiology.v1.AnalysisService. Requests and
// responses are JSON-shaped Structs; see the handler of each method for its fields.
type AnalysisServiceServer interface {
	ExtractText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnalyzeReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConsolidateReports(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompareTreatments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportAnalyses(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

func RegisterAnalysisServiceServer(s grpc.ServiceRegistrar, srv AnalysisServiceServer) {
	s.RegisterService(&AnalysisServiceDesc, srv)
}

func unaryHandler[Out proto.Message](method string, call func(AnalysisServiceServer, context.Context, *structpb.Struct) (Out, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AnalysisServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AnalysisServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var AnalysisServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalysisServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ExtractText", AnalysisServiceServer.ExtractText),
		unaryHandler("AnalyzeReport", AnalysisServiceServer.AnalyzeReport),
		unaryHandler("ProcessFile", AnalysisServiceServer.ProcessFile),
		unaryHandler("ConsolidateReports", AnalysisServiceServer.ConsolidateReports),
		unaryHandler("CompareTreatments", AnalysisServiceServer.CompareTreatments),
		unaryHandler("IngestDirectory", AnalysisServiceServer.IngestDirectory),
		unaryHandler("ExportAnalyses", AnalysisServiceServer.ExportAnalyses),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "radiology/v1/analysis.proto",
}

// AnalysisServiceClient is the client API for radiology.v1.AnalysisService.
type AnalysisServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAnalysisServiceClient(cc grpc.ClientConnInterface) *AnalysisServiceClient {
	return &AnalysisServiceClient{cc: cc}
}

func (c *AnalysisServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, out proto.Message, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *AnalysisServiceClient) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalysisServiceClient) ExtractText(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ExtractText", in, opts...)
}

func (c *AnalysisServiceClient) AnalyzeReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "AnalyzeReport", in, opts...)
}

func (c *AnalysisServiceClient) ProcessFile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ProcessFile", in, opts...)
}

func (c *AnalysisServiceClient) ConsolidateReports(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ConsolidateReports", in, opts...)
}

func (c *AnalysisServiceClient) CompareTreatments(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "CompareTreatments", in, opts...)
}

func (c *AnalysisServiceClient) IngestDirectory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "IngestDirectory", in, opts...)
}

func (c *AnalysisServiceClient) ExportAnalyses(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.invoke(ctx, "ExportAnalyses", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
