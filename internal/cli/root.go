// Package cli implements the rackctl command line tool: bulk import and
// export of the inventory against a running database.
package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rackhaus/rackd/internal/inventory/config"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/invcommon"
)

// NewRootCmd creates the root command for rackctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rackctl",
		Short: "rackctl manages datacenter inventory in bulk",
		Long: `rackctl imports and exports datacenter asset inventory as xlsx
workbooks against the inventory database configured in the config file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "path to the config file")
	cmd.PersistentFlags().String("user", "rackctl", "acting user recorded on writes")
	cmd.PersistentFlags().String("plan", "", "change plan id to scope edits to")

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newExportCmd())
	return cmd
}

// requestContext builds the db-scoped context the core packages expect,
// mirroring what the server middleware does per request.
func requestContext(cmd *cobra.Command) (context.Context, func(), error) {
	configFile, _ := cmd.Flags().GetString("config")
	if err := config.LoadConfig(configFile); err != nil {
		return nil, nil, err
	}
	if err := db.Init(); err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	user, _ := cmd.Flags().GetString("user")
	ctx = invcommon.SetUserIdInContext(ctx, user)
	if planStr, _ := cmd.Flags().GetString("plan"); planStr != "" {
		planID, err := uuid.Parse(planStr)
		if err != nil {
			return nil, nil, err
		}
		ctx = invcommon.SetChangePlanInContext(ctx, planID)
	}

	ctx = db.ConnCtx(ctx)
	cleanup := func() { db.DB(ctx).Close(ctx) }
	return ctx, cleanup, nil
}
