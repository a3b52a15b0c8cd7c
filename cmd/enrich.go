package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	enrichBatch     int
	enrichNoDetails bool
	enrichDrain     bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [campaign-id] [user-id]",
	Short: "Resolve e-mails and contact details for unenriched profiles",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		campaignID := cfg.Enrich.CampaignID
		userID := cfg.Enrich.UserID
		if len(args) > 0 {
			campaignID = args[0]
		}
		if len(args) > 1 {
			userID = args[1]
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tasks := newTasks(cfg, st)
		opts := tasks.enrichOptions(campaignID, userID, enrichBatch)
		if enrichNoDetails {
			opts.FetchDetails = false
		}

		run := tasks.enrichOnce
		if enrichDrain {
			run = tasks.enrichAll
		}
		res, err := run(ctx, opts)
		if res != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(res)
		}
		return eris.Wrap(err, "enrich")
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichBatch, "batch", 0, "profiles per batch (default from config)")
	enrichCmd.Flags().BoolVar(&enrichNoDetails, "no-details", false, "resolve e-mails only, skip contact details")
	enrichCmd.Flags().BoolVar(&enrichDrain, "all", false, "repeat batches until no unenriched profiles remain")
	rootCmd.AddCommand(enrichCmd)
}
