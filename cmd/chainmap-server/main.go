package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/lojhan/chainmap/internal/command"
	"github.com/lojhan/chainmap/internal/config"
	"github.com/lojhan/chainmap/internal/logging"
	"github.com/lojhan/chainmap/internal/server"
	"github.com/lojhan/chainmap/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is canceled or the server fails, then stops it
// gracefully.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) (err error) {
	defer func() {
		// stderr reports EINVAL on Sync when it is a terminal.
		if serr := logger.Sync(); serr != nil && !errors.Is(serr, unix.EINVAL) && !errors.Is(serr, unix.ENOTTY) {
			err = multierr.Append(err, serr)
		}
	}()

	dataStore, err := store.NewStore(cfg.InitialCapacity, logger.Named("store"))
	if err != nil {
		return err
	}

	srv := server.NewServer(logger.Named("server"), cfg.Multicore)
	registerCommands(srv, dataStore)

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		logger.Info("starting chainmap server",
			zap.String("addr", cfg.Addr()),
			zap.Int("initial_capacity", cfg.InitialCapacity),
		)
		return srv.Start(cfg.Addr())
	})

	g.Go(func() error {
		<-ctx.Done()

		select {
		case <-srv.Ready():
		case <-done:
			return nil
		}
		logger.Info("shutting down server")

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Stop(stopCtx); err != nil && !errors.Is(err, server.ErrNotRunning) {
			return fmt.Errorf("stopping server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func registerCommands(srv *server.Server, dataStore *store.Store) {
	srv.RegisterCommand("PING", command.PingCommand)
	srv.RegisterCommand("ECHO", command.EchoCommand)
	srv.RegisterCommand("COMMAND", command.CommandCommand)
	srv.RegisterCommand("INFO", command.InfoCommand(dataStore, srv.ClientCount))

	srv.RegisterCommand("SET", command.SetCommand(dataStore))
	srv.RegisterCommand("GET", command.GetCommand(dataStore))
	srv.RegisterCommand("DEL", command.DelCommand(dataStore))
	srv.RegisterCommand("GETDEL", command.GetDelCommand(dataStore))
	srv.RegisterCommand("EXISTS", command.ExistsCommand(dataStore))
	srv.RegisterCommand("KEYS", command.KeysCommand(dataStore))
	srv.RegisterCommand("DBSIZE", command.DBSizeCommand(dataStore))
	srv.RegisterCommand("FLUSHDB", command.FlushDBCommand(dataStore))
}
