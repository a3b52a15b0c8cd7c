package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/outreach"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var (
	uploadCampaignID string
	uploadUserID     string
)

func uploadContacts(ctx context.Context, st store.Gateway, f store.ContactFilter) (*outreach.Result, error) {
	client, err := newInstantly(cfg)
	if err != nil {
		return nil, err
	}
	contacts, err := st.ListContacts(ctx, f)
	if err != nil {
		return nil, eris.Wrap(err, "list contacts")
	}
	return outreach.NewUploader(client, outreachConfig(cfg)).Upload(ctx, contacts)
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload enriched contacts to Instantly",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := uploadContacts(ctx, st, store.ContactFilter{
			OwnerID:    orDefault(uploadUserID, cfg.Enrich.UserID),
			CampaignID: orDefault(uploadCampaignID, cfg.Enrich.CampaignID),
		})
		if res != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(res)
		}
		return eris.Wrap(err, "upload")
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadCampaignID, "campaign-id", "", "campaign to upload (default from config)")
	uploadCmd.Flags().StringVar(&uploadUserID, "user-id", "", "owner to upload (default from config)")
	rootCmd.AddCommand(uploadCmd)
}
