package main

import (
	"context"
	"fmt"

	"github.com/bosunhq/bosun/internal/importer"
	"github.com/bosunhq/bosun/internal/vessel"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "import <vessel-id> <file.xlsx>",
		Short: "Import requirements and maintenance tasks from a workbook",
		Long: `Reads the "Inventory" and "Maintenance" sheets of an xlsx workbook and
creates their rows on the vessel. Every row is validated first; if any row
is invalid nothing is imported.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, args[0], args[1])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runImport(cmd *cobra.Command, configPath, vesselID, path string) error {
	a, err := loadApp(cmd, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	v, err := vessel.Get(a.db, "", vesselID)
	if err != nil {
		return err
	}
	res, err := importer.ImportFile(a.db, v.ID, path, "import")
	if err != nil {
		return err
	}

	ctx := context.Background()
	a.connectRedis(ctx)
	a.statusCache().Invalidate(ctx, v.ID)

	fmt.Fprintf(cmd.OutOrStdout(), "Imported into %s: %d groups, %d requirements, %d tasks\n",
		v.Name, res.Groups, res.Requirements, res.Tasks)
	return nil
}
