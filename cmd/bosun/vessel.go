package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/bosunhq/bosun/internal/maintenance"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/bosunhq/bosun/internal/trip"
	"github.com/bosunhq/bosun/internal/vessel"
	"github.com/spf13/cobra"
)

func newVesselCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vessel",
		Short: "Vessel commands",
	}
	cmd.AddCommand(newVesselListCmd())
	cmd.AddCommand(newVesselStatusCmd())
	return cmd
}

func newVesselListCmd() *cobra.Command {
	var (
		configPath string
		orgID      string
		archived   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vessels with their engine hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVesselList(cmd, configPath, vessel.ListFilters{OrgID: orgID, IncludeArchived: archived})
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&orgID, "org", "", "only vessels of this organization")
	cmd.Flags().BoolVar(&archived, "archived", false, "include archived vessels")
	return cmd
}

func runVesselList(cmd *cobra.Command, configPath string, filters vessel.ListFilters) error {
	a, err := loadApp(cmd, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	vessels, err := vessel.List(a.db, filters)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(vessels) == 0 {
		fmt.Fprintln(out, "No vessels found.")
		return nil
	}

	ids := make([]string, len(vessels))
	for i, v := range vessels {
		ids[i] = v.ID
	}
	hours, err := trip.TotalHoursByVessel(a.db, ids)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMAKE/MODEL\tLOCATION\tHOURS")
	for _, v := range vessels {
		name := v.Name
		if v.ArchivedAt != nil {
			name += " (archived)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.ID, name, makeModel(v), dash(v.Location), hours[v.ID].StringFixed(1))
	}
	return w.Flush()
}

func newVesselStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <vessel-id>",
		Short: "Show a vessel's maintenance and inventory status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVesselStatus(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runVesselStatus(cmd *cobra.Command, configPath, vesselID string) error {
	a, err := loadApp(cmd, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	a.connectRedis(ctx)

	v, err := vessel.Get(a.db, "", vesselID)
	if err != nil {
		return err
	}
	summary, err := a.statusCache().Get(ctx, a.db, v.ID)
	if err != nil {
		return err
	}
	tasks, err := maintenance.EvaluateVessel(a.db, v.ID, time.Now())
	if err != nil {
		return err
	}
	items, err := inventory.Evaluate(a.db, v.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := paletteFor(out)

	fmt.Fprintf(out, "%s  %s\n", v.Name, makeModel(*v))
	fmt.Fprintf(out, "Engine hours:     %s\n", summary.TotalHours.StringFixed(1))
	fmt.Fprintf(out, "Overdue:          %s\n", countColor(p, summary.Overdue, p.red))
	fmt.Fprintf(out, "Due soon:         %s\n", countColor(p, summary.DueSoon, p.yellow))
	fmt.Fprintf(out, "Items missing:    %s\n", summary.MissingCount.String())
	fmt.Fprintf(out, "Critical missing: %s\n", countColor(p, summary.CriticalMissing, p.red))

	if len(tasks) > 0 {
		fmt.Fprintln(out, "\nMaintenance")
		printTasks(out, p, tasks)
	}
	if len(items) > 0 {
		fmt.Fprintln(out, "\nInventory")
		printItems(out, p, items)
	}
	return nil
}

func printTasks(out io.Writer, p palette, tasks []maintenance.TaskStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tSTATE\tNEXT DUE\tHOURS LEFT")
	for _, t := range tasks {
		state := string(t.Due.State)
		if !t.Task.IsActive {
			state = "INACTIVE"
		}
		next := "-"
		if t.Due.NextDueAt != nil {
			next = t.Due.NextDueAt.Format("2006-01-02")
		}
		left := "-"
		if t.Due.HoursRemaining != nil {
			left = t.Due.HoursRemaining.StringFixed(1)
		}
		// Pad before coloring so escape codes do not skew the columns.
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Task.Name, stateColor(p, t.Task.IsActive, t.Due.State, fmt.Sprintf("%-11s", state)), next, left)
	}
	w.Flush()
}

func printItems(out io.Writer, p palette, items []inventory.ItemStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tON BOARD\tREQUIRED\tMISSING\tSOURCE")
	for _, it := range items {
		missing := it.Gap.Missing.String()
		switch it.Gap.Severity() {
		case inventory.SeverityCritical:
			missing = p.red(fmt.Sprintf("%-7s", missing))
		case inventory.SeverityMissing:
			missing = p.yellow(fmt.Sprintf("%-7s", missing))
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", it.Requirement.ItemName, it.Current.String(), it.Requirement.RequiredQuantity, missing, it.Source)
	}
	w.Flush()
}

func stateColor(p palette, active bool, state maintenance.State, s string) string {
	if !active {
		return s
	}
	switch state {
	case maintenance.StateOverdue:
		return p.red(s)
	case maintenance.StateDueSoon:
		return p.yellow(s)
	case maintenance.StateOK:
		return p.green(s)
	}
	return s
}

func countColor(p palette, n int, bad func(string) string) string {
	s := fmt.Sprintf("%d", n)
	if n > 0 {
		return bad(s)
	}
	return p.green(s)
}

func makeModel(v models.Vessel) string {
	s := strings.TrimSpace(v.Make + " " + v.Model)
	if v.Year != nil {
		s = strings.TrimSpace(fmt.Sprintf("%d %s", *v.Year, s))
	}
	return dash(s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
