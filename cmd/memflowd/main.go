// Command memflowd runs the remote memory manager server: a single
// pre-reserved byte arena rented out to clients as typed, refcounted
// regions over a small RPC protocol.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/memflow/memflowd/internal/arena"
	"github.com/memflow/memflowd/internal/config"
	"github.com/memflow/memflowd/internal/rpc"
	"github.com/memflow/memflowd/internal/sweeper"
	"github.com/memflow/memflowd/internal/table"
)

// version is set by the build; left as "dev" for source builds.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		flagPort       int
		flagMemsizeMB  int
		flagDumpFolder string
		flagConfigFile string
		flagVerbose    bool
	)

	cmd := &cobra.Command{
		Use:           "memflowd",
		Short:         "Remote memory manager: arena allocator served over a small RPC protocol",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(runOptions{
				Flags: config.Flags{
					Port:       flagPort,
					MemsizeMB:  flagMemsizeMB,
					DumpFolder: flagDumpFolder,
				},
				ConfigFile: flagConfigFile,
				Verbose:    flagVerbose,
			})
		},
	}

	pflags := cmd.Flags()
	pflags.IntVar(&flagPort, "port", 0, "TCP port to listen on (default 7070)")
	pflags.IntVar(&flagMemsizeMB, "memsize-mb", 0, "arena size in megabytes (default 64)")
	pflags.StringVar(&flagDumpFolder, "dump-folder", "", "directory for diagnostic dumps (default ./dumps)")
	pflags.StringVar(&flagConfigFile, "config", "", "path to an optional TOML config file")
	pflags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug-level logging")

	return cmd
}

type runOptions struct {
	Flags      config.Flags
	ConfigFile string
	Verbose    bool
}

func run(opts runOptions) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	var file *config.File
	if opts.ConfigFile != "" {
		f, err := config.LoadFile(opts.ConfigFile)
		if err != nil {
			log.WithError(err).Error("failed to load config file")
			return err
		}
		file = f
	}

	cfg := config.Resolve(opts.Flags, file)

	if err := os.MkdirAll(cfg.DumpFolder, 0o755); err != nil {
		return fmt.Errorf("main: create dump folder: %w", err)
	}

	arenaSize := cfg.ArenaBytes()
	a, err := arena.New(arenaSize)
	if err != nil {
		log.WithError(err).Error("failed to reserve arena")
		return err
	}

	log.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"memsize_mb":  cfg.MemsizeMB,
		"dump_folder": cfg.DumpFolder,
	}).Info("starting memflowd")

	t := table.New(a)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		a.Close()
		log.WithError(err).Error("failed to listen")
		return fmt.Errorf("main: listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	sw := sweeper.New(t, cfg.DumpFolder, log.WithField("component", "sweeper"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sw.Run(sweeperCtx)
	}()

	srv := rpc.NewServer(t, cfg.DumpFolder, log.WithField("component", "rpc"))

	serveErr := make(chan error, 1)
	serveCtx, cancelServe := context.WithCancel(context.Background())
	go func() {
		serveErr <- srv.Serve(serveCtx, ln)
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	// Shutdown ordering per the concurrency model: stop the sweeper and
	// join it before releasing the arena, so it never touches freed
	// memory; stop accepting RPC requests before releasing the arena.
	cancelSweeper()
	wg.Wait()

	cancelServe()
	<-serveErr

	if err := a.Close(); err != nil {
		log.WithError(err).Warn("failed to release arena")
	}

	log.Info("memflowd stopped")
	return nil
}
