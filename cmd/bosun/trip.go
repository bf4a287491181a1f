package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bosunhq/bosun/internal/trip"
	"github.com/bosunhq/bosun/internal/vessel"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newTripCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trip",
		Short: "Trip commands",
	}
	cmd.AddCommand(newTripLogCmd())
	return cmd
}

func newTripLogCmd() *cobra.Command {
	var (
		configPath string
		hours      string
		note       string
		at         string
		by         string
	)

	cmd := &cobra.Command{
		Use:   "log <vessel-id>",
		Short: "Log engine hours for a trip",
		Long: `Records a trip and consumes auto-tracked inventory for its hours.

The trip is rejected if a consumable item would drop below zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTripLog(cmd, configPath, args[0], hours, note, at, by)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&hours, "hours", "", "engine hours run (required)")
	cmd.Flags().StringVar(&note, "note", "", "free-text note")
	cmd.Flags().StringVar(&at, "at", "", "when the trip happened, YYYY-MM-DD or RFC 3339 (default now)")
	cmd.Flags().StringVar(&by, "by", "cli", "recorded as the trip's author")
	cmd.MarkFlagRequired("hours")
	return cmd
}

func runTripLog(cmd *cobra.Command, configPath, vesselID, hoursArg, note, at, by string) error {
	h, err := decimal.NewFromString(hoursArg)
	if err != nil {
		return fmt.Errorf("--hours %q is not a number", hoursArg)
	}
	var loggedAt time.Time
	if at != "" {
		if loggedAt, err = parseWhen(at); err != nil {
			return err
		}
	}

	a, err := loadApp(cmd, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := vessel.Get(a.db, "", vesselID); err != nil {
		return err
	}
	t, err := trip.Log(a.db, trip.LogOpts{
		VesselID:  vesselID,
		Hours:     h,
		LoggedAt:  loggedAt,
		Note:      note,
		CreatedBy: by,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	a.connectRedis(ctx)
	a.statusCache().Invalidate(ctx, vesselID)

	total, err := trip.TotalHours(a.db, vesselID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Logged trip %s: %s hours\n", t.ID, t.Hours.String())
	fmt.Fprintf(out, "Total engine hours: %s\n", total.StringFixed(1))
	return nil
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("--at %q: want YYYY-MM-DD or RFC 3339", s)
}
