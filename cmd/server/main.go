package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/docstore"
	"github.com/bigwednesday/customer-api/identity"
	"github.com/bigwednesday/customer-api/internal/config"
	"github.com/bigwednesday/customer-api/internal/httpapi"
	"github.com/bigwednesday/customer-api/internal/logger"
	"github.com/bigwednesday/customer-api/internal/metrics"
	"github.com/bigwednesday/customer-api/store"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       conf.Log.Level,
		Environment: conf.Server.Env,
		ServiceName: conf.ServiceName,
	})
	if err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := run(conf, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(conf *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("configuration loaded", conf.LogFields()...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prefixed := prometheus.WrapRegistererWithPrefix(conf.Metrics.Prefix, reg)

	db, err := newDocstore(ctx, conf.Docstore, log)
	if err != nil {
		return err
	}
	instrumented := metrics.NewStore(db, prefixed)

	idp := identity.NewClient(identity.Config{
		Domain:          conf.Auth0.Domain,
		Connection:      conf.Auth0.Connection,
		ClientID:        conf.Auth0.ClientID,
		ClientSecret:    conf.Auth0.ClientSecret,
		ManagementToken: conf.Auth0.ManagementToken,
		Timeout:         conf.Auth0.Timeout,
	}, log.Named("identity"))

	entities := store.NewEntityStore(instrumented, store.WithLogger(log.Named("store")))
	srv := httpapi.New(httpapi.Deps{
		Customers:   store.NewCustomerStore(entities, idp, store.Config{Connection: conf.Auth0.Connection}, log.Named("customers")),
		Memberships: store.NewMembershipStore(entities),
		Adjustments: store.NewAdjustmentStore(entities),
		SigningKey:  []byte(conf.JWT.SigningKey),
		Metrics:     metrics.NewHTTPMetrics(conf.ServiceName, prefixed, reg),
		Logger:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + conf.Server.Port)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", conf.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newDocstore(ctx context.Context, conf config.DocstoreConfig, log *zap.Logger) (docstore.Store, error) {
	if conf.Backend == config.BackendMemory {
		log.Warn("using in-memory document store; data is lost on restart")
		return docstore.NewMemory(), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	})
	return docstore.NewDynamo(client, docstore.Config{Table: conf.Table}), nil
}
