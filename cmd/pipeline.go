package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/outreach"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var (
	pipelineCampaignID string
	pipelineUserID     string
	pipelineSkipUpload bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <keyword> <location> <industry> [pages]",
	Short: "Search, enrich, back up to CSV and upload to Instantly",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		q, err := parseQuery(args)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		campaignID := orDefault(pipelineCampaignID, cfg.Enrich.CampaignID)
		userID := orDefault(pipelineUserID, cfg.Enrich.UserID)
		log := zap.L().With(zap.String("campaign_id", campaignID))
		tasks := newTasks(cfg, st)

		log.Info("pipeline: searching", zap.Strings("keywords", q.Keywords))
		saved, err := tasks.search(ctx, q, userID, campaignID)
		if err != nil {
			return eris.Wrap(err, "pipeline: search")
		}
		if saved == 0 {
			log.Info("pipeline: no new profiles")
		}

		res, err := tasks.enrichAll(ctx, tasks.enrichOptions(campaignID, userID, 0))
		if err != nil {
			return eris.Wrap(err, "pipeline: enrich")
		}
		log.Info("pipeline: enriched",
			zap.Int("enriched", res.Enriched),
			zap.Int("dropped", res.Dropped),
			zap.Int("attempted", res.Attempted),
		)

		filter := store.ContactFilter{OwnerID: userID, CampaignID: campaignID}
		path, rows, err := exportContacts(ctx, st, filter, export.FormatCSV, "")
		if err != nil {
			return eris.Wrap(err, "pipeline: csv backup")
		}
		if rows == 0 {
			log.Info("pipeline: no contacts with e-mails, skipping upload", zap.String("backup", path))
			return nil
		}

		if pipelineSkipUpload {
			return nil
		}
		up, err := uploadContacts(ctx, st, filter)
		if errors.Is(err, outreach.ErrNoValidLeads) {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "pipeline: upload")
		}
		log.Info("pipeline: complete",
			zap.Int("saved", saved),
			zap.Int("uploaded", up.Uploaded),
			zap.Int("upload_failed", up.Failed),
			zap.String("backup", path),
			zap.String("dashboard", up.DashboardURL),
		)
		return nil
	},
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelineCampaignID, "campaign-id", "", "campaign to stamp and process (default from config)")
	pipelineCmd.Flags().StringVar(&pipelineUserID, "user-id", "", "owner to stamp and process (default from config)")
	pipelineCmd.Flags().BoolVar(&pipelineSkipUpload, "skip-upload", false, "stop after the CSV backup")
	rootCmd.AddCommand(pipelineCmd)
}
