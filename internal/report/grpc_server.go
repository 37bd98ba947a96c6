package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gradebook/internal/analytics"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AnalyticsServiceName is the fully qualified gRPC service. Requests and
// responses are google.protobuf.Struct, mirroring the HTTP JSON bodies.
const AnalyticsServiceName = "gradebook.v1.Analytics"

type AnalyticsServer interface {
	GetReportCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetClassReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	TopPerformers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var AnalyticsServiceDesc = grpc.ServiceDesc{
	ServiceName: AnalyticsServiceName,
	HandlerType: (*AnalyticsServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetReportCard", AnalyticsServer.GetReportCard),
		unaryMethod("GetClassReport", AnalyticsServer.GetClassReport),
		unaryMethod("TopPerformers", AnalyticsServer.TopPerformers),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gradebook/v1/analytics.proto",
}

func RegisterAnalyticsServer(s grpc.ServiceRegistrar, srv AnalyticsServer) {
	s.RegisterService(&AnalyticsServiceDesc, srv)
}

func unaryMethod(name string, call func(AnalyticsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + AnalyticsServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AnalyticsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AnalyticsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type GrpcServer struct {
	service *Service
	logger  *slog.Logger
}

var _ AnalyticsServer = (*GrpcServer)(nil)

func NewGrpcServer(service *Service, logger *slog.Logger) *GrpcServer {
	return &GrpcServer{
		service: service,
		logger:  logger,
	}
}

func (s *GrpcServer) GetReportCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := intField(req, "student_id")
	s.logger.InfoContext(ctx, "gRPC: building report card", "student_id", id)

	card, err := s.service.ReportCard(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toStruct(card)
}

func (s *GrpcServer) GetClassReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	class := stringField(req, "class")
	section := stringField(req, "section")
	s.logger.InfoContext(ctx, "gRPC: building class report", "class", class, "section", section)

	report, err := s.service.ClassReport(ctx, class, section, intField(req, "top"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toStruct(report)
}

func (s *GrpcServer) TopPerformers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ranked, err := s.service.TopPerformers(ctx, intField(req, "limit"), stringField(req, "class"), stringField(req, "section"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return toStruct(map[string]any{"students": ranked})
}

func (s *GrpcServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrStudentNotFound), errors.Is(err, ErrClassNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, analytics.ErrNegativeLimit):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.ErrorContext(ctx, "gRPC: request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func intField(req *structpb.Struct, key string) int {
	return int(req.GetFields()[key].GetNumberValue())
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// toStruct converts v through its JSON form so gRPC clients see the same
// field names as HTTP clients.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

// AnalyticsClient calls the Analytics service.
type AnalyticsClient struct {
	cc grpc.ClientConnInterface
}

func NewAnalyticsClient(cc grpc.ClientConnInterface) *AnalyticsClient {
	return &AnalyticsClient{cc: cc}
}

func (c *AnalyticsClient) invoke(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+AnalyticsServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalyticsClient) GetReportCard(ctx context.Context, studentID int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetReportCard", map[string]any{"student_id": studentID}, opts...)
}

func (c *AnalyticsClient) GetClassReport(ctx context.Context, class, section string, top int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetClassReport", map[string]any{"class": class, "section": section, "top": top}, opts...)
}

func (c *AnalyticsClient) TopPerformers(ctx context.Context, limit int, class, section string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "TopPerformers", map[string]any{"limit": limit, "class": class, "section": section}, opts...)
}
