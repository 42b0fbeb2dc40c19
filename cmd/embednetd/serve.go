package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sabouaram/embednet/config"
	"github.com/sabouaram/embednet/internal/metrics"
	"github.com/sabouaram/embednet/logger"
	"github.com/sabouaram/embednet/mgr"
	httpproto "github.com/sabouaram/embednet/proto/http"
	"github.com/sabouaram/embednet/vfs"
	"github.com/sabouaram/embednet/vfs/aferofs"
	"github.com/sabouaram/embednet/vfs/packed"
)

func aferoRoot(dir string) vfs.FS {
	return aferofs.New(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

func newServeCmd() *cobra.Command {
	var pollMS int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hosted reactor, serving every listener declared in the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgFile, pollMS)
		},
	}
	cmd.Flags().IntVar(&pollMS, "poll-ms", 50, "Poll() timeout in milliseconds per reactor tick")
	return cmd
}

func runServe(cfgPath string, pollMS int) error {
	log := logger.New()
	entry := log.Entry()

	settings := config.DefaultSettings()
	if cfgPath != "" {
		mgrCfg := config.New(afero.NewOsFs())
		s, err := mgrCfg.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		settings = s
	}

	m := mgr.Init(
		mgr.WithLogger(log),
		mgr.WithMetrics(metrics.New("embednetd")),
	)
	defer m.Free()

	h := &httpproto.Handler{Root: packed.Default()}
	if settings.StaticRoot != "" {
		h.Root = aferoRoot(settings.StaticRoot)
	}

	for _, n := range settings.Networks {
		_, err := m.Listen(n.URL, func(c *mgr.Connection, ev mgr.Event, _ interface{}) {
			if ev == mgr.EvAccept {
				h.Attach(c)
			}
		}, nil)
		if err != nil {
			return fmt.Errorf("listen %s (%s): %w", n.Name, n.URL, err)
		}
		entry.WithField("name", n.Name).WithField("url", n.URL).Info("listening")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			entry.Info("shutting down")
			return nil
		default:
			m.Poll(pollMS)
		}
	}
}
