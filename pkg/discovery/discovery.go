// Package discovery registers service endpoints in etcd under leased keys.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/example/bloomcart/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// leaseTTL is the registration lifetime in seconds; keep-alives renew it.
const leaseTTL = 30

type ServiceDiscovery struct {
	client *clientv3.Client
	config *config.EtcdConfig
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID
}

// ServiceInstance is one reachable endpoint of a named service. Protocol separates the
// HTTP and gRPC endpoints of the same service.
type ServiceInstance struct {
	Name     string
	Protocol string
	Host     string
	Port     int
}

func (i ServiceInstance) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

func NewServiceDiscovery(cfg *config.EtcdConfig, logger *zap.Logger) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &ServiceDiscovery{
		client: cli,
		config: cfg,
		logger: logger,
		leases: make(map[string]clientv3.LeaseID),
	}, nil
}

// Register publishes instance under a lease kept alive until ctx ends or Deregister is called.
func (sd *ServiceDiscovery) Register(ctx context.Context, instance ServiceInstance) error {
	key := instanceKey(sd.config.Prefix, instance)

	lease, err := sd.client.Grant(ctx, leaseTTL)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	if _, err := sd.client.Put(ctx, key, instance.Addr(), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := sd.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}

	sd.mu.Lock()
	sd.leases[key] = lease.ID
	sd.mu.Unlock()

	go func() {
		for range ch {
		}
		sd.logger.Info("Service lease keep-alive ended", zap.String("key", key))
	}()

	sd.logger.Info("Service registered", zap.String("key", key), zap.String("addr", instance.Addr()))
	return nil
}

func (sd *ServiceDiscovery) Discover(ctx context.Context, name, protocol string) ([]ServiceInstance, error) {
	prefix := servicePrefix(sd.config.Prefix, name, protocol)

	resp, err := sd.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover service: %w", err)
	}

	var instances []ServiceInstance
	for _, kv := range resp.Kvs {
		instance, err := parseInstance(name, protocol, string(kv.Value))
		if err != nil {
			sd.logger.Warn("Skipping malformed registration", zap.String("key", string(kv.Key)), zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Deregister revokes the instance lease, removing its key immediately.
func (sd *ServiceDiscovery) Deregister(ctx context.Context, instance ServiceInstance) error {
	key := instanceKey(sd.config.Prefix, instance)

	sd.mu.Lock()
	leaseID, ok := sd.leases[key]
	delete(sd.leases, key)
	sd.mu.Unlock()

	if ok {
		if _, err := sd.client.Revoke(ctx, leaseID); err != nil {
			return fmt.Errorf("failed to revoke lease: %w", err)
		}
		return nil
	}

	if _, err := sd.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

func (sd *ServiceDiscovery) Close() error {
	return sd.client.Close()
}

func servicePrefix(prefix, name, protocol string) string {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%s%s/%s/", prefix, name, protocol)
}

func instanceKey(prefix string, instance ServiceInstance) string {
	return servicePrefix(prefix, instance.Name, instance.Protocol) + instance.Addr()
}

func parseInstance(name, protocol, value string) (ServiceInstance, error) {
	host, rawPort, err := net.SplitHostPort(value)
	if err != nil {
		return ServiceInstance{}, err
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return ServiceInstance{}, fmt.Errorf("invalid port %q: %w", rawPort, err)
	}
	return ServiceInstance{Name: name, Protocol: protocol, Host: host, Port: port}, nil
}
