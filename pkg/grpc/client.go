package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/example/bloomcart/pkg/discovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Discoverer finds registered endpoints of a service.
type Discoverer interface {
	Discover(ctx context.Context, name, protocol string) ([]discovery.ServiceInstance, error)
}

// OrderQueryClient calls the internal order query API.
type OrderQueryClient struct {
	conn *grpc.ClientConn
}

func NewOrderQueryClient(conn *grpc.ClientConn) *OrderQueryClient {
	return &OrderQueryClient{conn: conn}
}

// DialOrderQuery connects to the first registered gRPC endpoint of serviceName, or to
// fallback when discovery is nil or finds nothing. opts are appended to the default
// insecure transport options.
func DialOrderQuery(ctx context.Context, disc Discoverer, serviceName, fallback string, logger *zap.Logger, opts ...grpc.DialOption) (*OrderQueryClient, error) {
	target := fallback

	if disc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		instances, err := disc.Discover(ctx, serviceName, "grpc")
		if err == nil && len(instances) > 0 {
			target = instances[0].Addr()
			logger.Info("Discovered order query service", zap.String("address", target))
		} else {
			logger.Info("Using default address for order query service", zap.String("address", target), zap.Error(err))
		}
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to order query service: %w", err)
	}
	return NewOrderQueryClient(conn), nil
}

func (c *OrderQueryClient) GetOrder(ctx context.Context, id string) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, getOrderMethod, wrapperspb.String(id), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderQueryClient) FloristReport(ctx context.Context, floristID string) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, floristReportMethod, wrapperspb.String(floristID), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderQueryClient) Close() error {
	return c.conn.Close()
}
