// Package grpc exposes read-only order queries to internal services.
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/config"
	"github.com/example/bloomcart/pkg/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName         = "bloomcart.orders.v1.OrderQuery"
	getOrderMethod      = "/" + ServiceName + "/GetOrder"
	floristReportMethod = "/" + ServiceName + "/FloristReport"
)

// OrderReader is the slice of the order service the internal API serves.
type OrderReader interface {
	Get(ctx context.Context, actor models.Actor, id string) (*models.Order, error)
	Report(ctx context.Context, actor models.Actor, floristID string) (*models.FloristReport, error)
}

// orderQueryServer is the handler type bound to the service descriptor.
type orderQueryServer interface {
	GetOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	FloristReport(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var orderQueryDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*orderQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOrder", Handler: getOrderHandler},
		{MethodName: "FloristReport", Handler: floristReportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bloomcart/orders/v1/order_query.proto",
}

// OrderServer answers internal queries on behalf of the system actor; it must only be
// reachable on the internal network.
type OrderServer struct {
	orders OrderReader
	logger *zap.Logger
	config *config.GRPCConfig

	srv    *grpc.Server
	health *health.Server
}

func NewOrderServer(orders OrderReader, cfg *config.GRPCConfig, logger *zap.Logger) *OrderServer {
	s := &OrderServer{
		orders: orders,
		logger: logger,
		config: cfg,
		health: health.NewServer(),
	}

	s.srv = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	s.srv.RegisterService(&orderQueryDesc, s)
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)

	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *OrderServer) Start() error {
	addr := s.config.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("Order query service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *OrderServer) Serve(lis net.Listener) error {
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *OrderServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *OrderServer) GetOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	o, err := s.orders.Get(ctx, models.SystemActor(), req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(o)
}

func (s *OrderServer) FloristReport(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	report, err := s.orders.Report(ctx, models.SystemActor(), req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(report)
}

func (s *OrderServer) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn("gRPC call failed", zap.String("method", info.FullMethod), zap.Error(err))
	}
	return resp, err
}

func getOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(orderQueryServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getOrderMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(orderQueryServer).GetOrder(ctx, req.(*wrapperspb.StringValue))
	})
}

func floristReportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(orderQueryServer).FloristReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: floristReportMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(orderQueryServer).FloristReport(ctx, req.(*wrapperspb.StringValue))
	})
}

// toStruct renders v through its JSON shape so gRPC and HTTP clients see the same fields.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func toStatus(err error) error {
	var code codes.Code
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		code = codes.InvalidArgument
	case apperr.KindUnauthenticated:
		code = codes.Unauthenticated
	case apperr.KindForbidden:
		code = codes.PermissionDenied
	case apperr.KindNotFound:
		code = codes.NotFound
	case apperr.KindConflict:
		code = codes.Aborted
	default:
		code = codes.Internal
	}
	return status.Error(code, apperr.Message(err))
}
