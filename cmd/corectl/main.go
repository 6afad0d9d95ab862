package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/slapcommerce/core/pkg"
	pkgapp "github.com/slapcommerce/core/pkg/application"
	"github.com/slapcommerce/core/pkg/domain"
	"github.com/slapcommerce/core/pkg/infrastructure"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	configFile  string
	verbose     bool
	metricsAddr string
)

func setEnvSecurely(key, value string) error {
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("failed to set environment variable %s: %w", key, err)
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "corectl",
		Short: "Operate the commerce event-sourced core",
		Long: `corectl drives the commerce core: run schema migrations, serve the
write and read path with the outbox processor attached, or seed example
data through the real command bus.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile != "" {
				if err := setEnvSecurely("CORE_CONFIG_FILE", configFile); err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				}
			}
			if verbose {
				if err := setEnvSecurely("CORE_LOGGING_LEVEL", "debug"); err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// migrateCmd runs the schema manager to bring the database up to date and
// exits, without starting the batcher or outbox processor.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations",
		Long:  "Create or update every table the event store, outbox, and read models need",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := pkg.NewApp(
				fx.Invoke(func(lc fx.Lifecycle, schema *infrastructure.SchemaManager, logger domain.Logger) {
					lc.Append(fx.Hook{
						OnStart: func(ctx context.Context) error {
							logger.Info("running schema migrations")
							if err := schema.Migrate(); err != nil {
								return fmt.Errorf("migrate: %w", err)
							}
							fmt.Println("schema migrated")
							return nil
						},
					})
				}),
			)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return err
			}
			return app.Stop(ctx)
		},
	}
}

// serveCmd starts the full write/read path: the database lifecycle (which
// migrates on start), the transaction batcher, the best-effort event
// dispatcher, and the outbox processor's lease/deliver/settle loop, plus a
// metrics endpoint for operators. It blocks until interrupted.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the core: batcher, outbox processor, and metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			var metricsSrv *http.Server

			app := pkg.NewApp(
				fx.Invoke(func(lc fx.Lifecycle, logger domain.Logger) {
					lc.Append(fx.Hook{
						OnStart: func(ctx context.Context) error {
							mux := http.NewServeMux()
							mux.Handle("/metrics", infrastructure.MetricsHandler())
							metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux}
							go func() {
								if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
									logger.Error("metrics server stopped", "error", err)
								}
							}()
							logger.Info("metrics endpoint listening", "addr", metricsAddr)
							return nil
						},
						OnStop: func(ctx context.Context) error {
							if metricsSrv == nil {
								return nil
							}
							return metricsSrv.Shutdown(ctx)
						},
					})
				}),
			)

			startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return fmt.Errorf("start: %w", err)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			return app.Stop(stopCtx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address the Prometheus metrics endpoint listens on")
	return cmd
}

// demoCmd seeds a handful of products, variants, and a collection through
// the real command bus, then reads them back through the query bus, to
// exercise the whole write-then-read path end to end.
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Seed example products, variants, and a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(func(ctx context.Context, logger domain.Logger, commandBus pkgapp.CommandBus, queryBus pkgapp.QueryBus) error {
				userID := "demo-operator"

				productID := uuid.NewString()
				createProduct := pkgapp.CreateProductCommand{
					ID:            productID,
					CorrelationID: uuid.NewString(),
					UserID:        userID,
					Title:         "Classic Tee",
					Description:   "A reliable cotton t-shirt",
				}
				if err := createProduct.Validate(); err != nil {
					return fmt.Errorf("validate create product: %w", err)
				}
				if err := commandBus.Handle(ctx, logger, createProduct); err != nil {
					return fmt.Errorf("create product: %w", err)
				}
				fmt.Printf("created product %s\n", productID)

				variantID := uuid.NewString()
				createVariant := pkgapp.CreateVariantCommand{
					ID:            variantID,
					CorrelationID: uuid.NewString(),
					UserID:        userID,
					ProductID:     productID,
					SKU:           "TEE-BLK-M",
					PriceCents:    2500,
					Inventory:     100,
					Options:       map[string]string{"color": "black", "size": "M"},
				}
				if err := createVariant.Validate(); err != nil {
					return fmt.Errorf("validate create variant: %w", err)
				}
				if err := commandBus.Handle(ctx, logger, createVariant); err != nil {
					return fmt.Errorf("create variant: %w", err)
				}
				fmt.Printf("created variant %s\n", variantID)

				attachVariant := pkgapp.AddVariantToProductCommand{
					ID:              productID,
					CorrelationID:   uuid.NewString(),
					UserID:          userID,
					ExpectedVersion: 0,
					VariantID:       variantID,
				}
				if err := attachVariant.Validate(); err != nil {
					return fmt.Errorf("validate add variant to product: %w", err)
				}
				if err := commandBus.Handle(ctx, logger, attachVariant); err != nil {
					return fmt.Errorf("add variant to product: %w", err)
				}

				publishVariant := pkgapp.PublishVariantCommand{
					ID:              variantID,
					CorrelationID:   uuid.NewString(),
					UserID:          userID,
					ExpectedVersion: 0,
				}
				if err := commandBus.Handle(ctx, logger, publishVariant); err != nil {
					return fmt.Errorf("publish variant: %w", err)
				}

				collectionID := uuid.NewString()
				createCollection := pkgapp.CreateCollectionCommand{
					ID:            collectionID,
					CorrelationID: uuid.NewString(),
					UserID:        userID,
					Title:         "Summer Basics",
				}
				if err := commandBus.Handle(ctx, logger, createCollection); err != nil {
					return fmt.Errorf("create collection: %w", err)
				}
				fmt.Printf("created collection %s\n", collectionID)

				addProduct := pkgapp.AddProductToCollectionCommand{
					ID:              collectionID,
					CorrelationID:   uuid.NewString(),
					UserID:          userID,
					ExpectedVersion: 0,
					ProductID:       productID,
				}
				if err := commandBus.Handle(ctx, logger, addProduct); err != nil {
					return fmt.Errorf("add product to collection: %w", err)
				}

				result, err := queryBus.Handle(ctx, logger, pkgapp.GetVariantQuery{ID: variantID})
				if err != nil {
					return fmt.Errorf("get variant: %w", err)
				}
				fmt.Printf("variant view: %+v\n", result)

				return nil
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("corectl v1.0.0")
			fmt.Println("commerce event-sourced core: products, variants, collections, schedules")
		},
	}
}

// runWithApp starts an fx app, invokes fn with the requested dependencies,
// and stops the app once fn returns.
func runWithApp(fn func(ctx context.Context, logger domain.Logger, commandBus pkgapp.CommandBus, queryBus pkgapp.QueryBus) error) error {
	var result error
	done := make(chan struct{})

	app := pkg.NewApp(
		fx.Invoke(func(logger domain.Logger, commandBus pkgapp.CommandBus, queryBus pkgapp.QueryBus) {
			defer close(done)
			ctx := context.Background()
			result = fn(ctx, logger, commandBus, queryBus)
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-done

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return result
}
