// Command ccond-casd serves a configured content-addressed store over gRPC.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"xdao.co/cryptoconditions/config"
	"xdao.co/cryptoconditions/store"
	"xdao.co/cryptoconditions/store/grpccas"

	_ "xdao.co/cryptoconditions/store/localfs"
	_ "xdao.co/cryptoconditions/store/rediscas"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var (
		configPath   string
		envFile      string
		listen       string
		backend      string
		listBackends bool
	)
	cmd := &cobra.Command{
		Use:          "ccond-casd",
		Short:        "gRPC content-addressed store daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listBackends {
				for _, b := range store.Backends() {
					if b.Description == "" {
						fmt.Fprintln(out, b.Name)
						continue
					}
					fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
				}
				return nil
			}
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			logger, err := cfg.Log.NewLogger(errOut)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cas, closeFn, err := cfg.Store.Open(ctx, backend)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeFn(); err != nil {
					logger.Error("closing store", "error", err)
				}
			}()

			lis, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return err
			}
			return serve(ctx, lis, cas, logger)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.Flags().StringVar(&configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "YAML config file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading CCOND_* variables")
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&backend, "backend", "", "Configured backend name or id to prefer for writes")
	cmd.Flags().BoolVar(&listBackends, "list-backends", false, "List supported backends and exit")
	return cmd
}

// serve runs the gRPC server on lis until ctx is done.
func serve(ctx context.Context, lis net.Listener, cas store.CAS, logger *slog.Logger) error {
	s := grpc.NewServer(grpc.UnaryInterceptor(logUnary(logger)))
	grpccas.RegisterCASServer(s, &grpccas.Server{CAS: cas})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", lis.Addr().String())
		errCh <- s.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		s.GracefulStop()
		return <-errCh
	}
}

func logUnary(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "rpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}
