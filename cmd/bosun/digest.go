package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bosunhq/bosun/internal/config"
	"github.com/bosunhq/bosun/internal/notify"
	discordadapter "github.com/bosunhq/bosun/internal/notify/discord"
	githubadapter "github.com/bosunhq/bosun/internal/notify/github"
	slackadapter "github.com/bosunhq/bosun/internal/notify/slack"
	"github.com/spf13/cobra"
)

func newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Maintenance digest commands",
	}
	cmd.AddCommand(newDigestSendCmd())
	return cmd
}

func newDigestSendCmd() *cobra.Command {
	var (
		configPath string
		orgID      string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build and send the maintenance digest once",
		Long:  "Builds the overdue, due-soon and critical-missing digest and posts it to the configured notify platform.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigestSend(cmd, configPath, orgID)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&orgID, "org", "", "limit the digest to one organization")
	return cmd
}

func runDigestSend(cmd *cobra.Command, configPath, orgID string) error {
	a, err := loadApp(cmd, configPath)
	if err != nil {
		return err
	}
	defer a.close()
	if a.cfg.Notify.Platform == "" {
		return fmt.Errorf("digest: no platform configured in %s (add notify.platform)", configPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.connectRedis(ctx)

	sched, err := a.newScheduler(orgID)
	if err != nil {
		return err
	}
	sent, err := sched.Once(ctx)
	switch {
	case errors.Is(err, notify.ErrSkipped):
		fmt.Fprintln(cmd.OutOrStdout(), "Digest already being sent by another instance")
		return nil
	case err != nil:
		return err
	case !sent:
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to report; digest not sent")
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Digest sent via %s\n", a.cfg.Notify.Platform)
	}
	return nil
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config) (notify.Adapter, error) {
	n := cfg.Notify
	switch n.Platform {
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			BotToken:  n.Slack.BotToken,
			ChannelID: n.Slack.ChannelID,
		})
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  n.Discord.BotToken,
			ChannelID: n.Discord.ChannelID,
		})
	case "github":
		return githubadapter.New(githubadapter.AdapterOpts{
			Token:  n.GitHub.Token,
			Owner:  n.GitHub.Owner,
			Repo:   n.GitHub.Repo,
			Labels: n.GitHub.Labels,
		})
	default:
		return nil, fmt.Errorf("notify: unsupported platform %q", n.Platform)
	}
}
