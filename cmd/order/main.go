package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/bloomcart/gateway"
	"github.com/example/bloomcart/pkg/audit"
	"github.com/example/bloomcart/pkg/auth"
	"github.com/example/bloomcart/pkg/catalog"
	"github.com/example/bloomcart/pkg/config"
	"github.com/example/bloomcart/pkg/discovery"
	"github.com/example/bloomcart/pkg/grpc"
	"github.com/example/bloomcart/pkg/jobs"
	"github.com/example/bloomcart/pkg/logging"
	"github.com/example/bloomcart/pkg/order"
	"github.com/example/bloomcart/pkg/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	defaultPath := os.Getenv("ORDER_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/order.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Order service failed", zap.Error(err))
	}
	logger.Info("Order service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting order service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoRepo.Close(closeCtx); err != nil {
			logger.Error("Failed to close MongoDB", zap.Error(err))
		}
	}()

	if err := mongoRepo.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed, catalog cache will miss", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	flowers := catalog.NewCachedCatalog(
		catalog.NewMongoCatalog(mongoRepo.Collection(cfg.MongoDB.FlowersCollection)),
		redisRepo,
		cfg.Redis.CatalogTTL,
		logger.Named("catalog"),
	)

	var sink audit.Sink = audit.NewLogSink(logger.Named("audit"))
	if cfg.MySQL.Enabled() {
		mysqlSink, err := audit.NewMySQLSink(&cfg.MySQL)
		if err != nil {
			logger.Warn("Audit database unavailable, logging audit entries instead", zap.Error(err))
		} else {
			defer mysqlSink.Close()
			sink = mysqlSink
		}
	}
	recorder := audit.NewRecorder(sink, logger)
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error("Failed to drain audit recorder", zap.Error(err))
		}
	}()

	orders := order.NewService(mongoRepo, flowers, logger.Named("orders"),
		order.WithAuditor(recorder),
		order.WithTerminalFreeze(cfg.Orders.FreezeTerminal))
	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.RoleClaim)
	gw := gateway.NewGateway(&cfg.Server, orders, verifier, logger.Named("gateway"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return gw.Run(gctx)
	})

	if cfg.GRPC.Enabled {
		server := grpc.NewOrderServer(orders, &cfg.GRPC, logger.Named("grpc"))
		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			server.Stop()
			return nil
		})
	}

	if cfg.Sweep.Enabled {
		sweep := jobs.NewFloristSweepJob(orders, cfg.Sweep.Schedule, logger)
		if err := sweep.Start(); err != nil {
			return fmt.Errorf("failed to schedule florist sweep: %w", err)
		}
		defer sweep.Stop()
	}

	if cfg.Etcd.Enabled {
		deregister, err := register(gctx, cfg, logger)
		if err != nil {
			logger.Warn("Service registration failed, continuing without discovery", zap.Error(err))
		} else {
			defer deregister()
		}
	}

	return g.Wait()
}

// register publishes the HTTP and, when enabled, gRPC endpoints in etcd and returns a
// function that withdraws them.
func register(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(), error) {
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger.Named("discovery"))
	if err != nil {
		return nil, err
	}

	instances := []discovery.ServiceInstance{
		{Name: cfg.Server.Name, Protocol: "http", Host: cfg.Server.Host, Port: cfg.Server.Port},
	}
	if cfg.GRPC.Enabled {
		instances = append(instances, discovery.ServiceInstance{
			Name: cfg.Server.Name, Protocol: "grpc", Host: cfg.GRPC.Host, Port: cfg.GRPC.Port,
		})
	}

	for _, instance := range instances {
		if err := sd.Register(ctx, instance); err != nil {
			sd.Close()
			return nil, err
		}
	}

	return func() {
		deregCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, instance := range instances {
			if err := sd.Deregister(deregCtx, instance); err != nil {
				logger.Error("Failed to deregister service", zap.Error(err))
			}
		}
		sd.Close()
	}, nil
}
