package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/faisal-mohamed/rfdb-new/internal/app"
	"github.com/faisal-mohamed/rfdb-new/internal/config"
	"github.com/faisal-mohamed/rfdb-new/internal/logging"
)

type rootOptions struct {
	envFile string
	user    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "rfpctl",
		Short:         "Administer the RFP review service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env", "", "Path to .env file")
	cmd.PersistentFlags().StringVar(&opts.user, "as", "rfpctl", "User recorded on audit fields")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newRegisterCmd(opts),
		newActionCmd(opts),
		newShowCmd(opts),
		newStatsCmd(opts),
		newBackfillCmd(opts),
	)
	return cmd
}

func (o *rootOptions) config() (*config.Config, error) {
	return config.LoadConfig(o.envFile)
}

// withApp builds the service stack, runs fn and tears the stack down. Logs
// go to stderr so stdout stays machine readable.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()
	return fn(ctx, deps)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
