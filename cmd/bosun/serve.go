package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosunhq/bosun/internal/api"
	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/notify"
	"github.com/bsm/redislock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long: `Serves the REST API. When notify.digest is enabled the maintenance
digest scheduler runs alongside it. SIGINT or SIGTERM shuts both down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	a, err := loadApp(cmd, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.connectRedis(ctx)
	return a.serve(ctx, cmd.OutOrStdout(), port)
}

// serve runs the API and, when enabled, the digest scheduler until ctx is
// cancelled. The scheduler is built first so a bad notify setup fails
// before anything is listening.
func (a *app) serve(ctx context.Context, out io.Writer, port int) error {
	if port <= 0 {
		port = a.cfg.Server.Port
	}

	var sched *notify.Scheduler
	if a.cfg.Notify.Digest.Enabled {
		var err error
		if sched, err = a.newScheduler(""); err != nil {
			return err
		}
	}

	issuer := auth.NewIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, time.Duration(a.cfg.Auth.TokenTTLHours)*time.Hour)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Start(ctx, api.StartOpts{
			DB:          a.db,
			Port:        port,
			Out:         out,
			Logger:      a.logger,
			Issuer:      issuer,
			Cache:       a.statusCache(),
			CORSOrigins: a.cfg.Server.CORSOrigins,
		})
	})

	if sched != nil {
		fmt.Fprintf(out, "Digest scheduled (%s) via %s\n", a.cfg.Notify.Digest.Cron, a.cfg.Notify.Platform)
		g.Go(func() error {
			return sched.Run(ctx)
		})
	}

	err := g.Wait()
	fmt.Fprintln(out, "bosun stopped")
	return err
}

// newScheduler builds the digest scheduler for the configured platform.
// With redis connected, a lock keeps a fleet of servers from each sending
// the same digest. A non-empty orgID limits the digest to that
// organization.
func (a *app) newScheduler(orgID string) (*notify.Scheduler, error) {
	adapter, err := createAdapter(a.cfg)
	if err != nil {
		return nil, err
	}
	var locker *redislock.Client
	if a.rdb != nil {
		locker = redislock.New(a.rdb)
	} else {
		a.logger.WithField("module", "main").Debug("redis not configured; digest runs without a lock")
	}
	return notify.NewScheduler(notify.SchedulerOpts{
		DB:      a.db,
		Adapter: adapter,
		Cron:    a.cfg.Notify.Digest.Cron,
		Locker:  locker,
		Logger:  a.logger.WithField("module", "notify"),
		OrgID:   orgID,
	})
}
