package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var (
	exportCampaignID string
	exportUserID     string
	exportFormat     string
	exportOut        string
)

// exportContacts writes the campaign's contacts to path, or to a timestamped
// file in the export directory when path is empty.
func exportContacts(ctx context.Context, st store.Gateway, f store.ContactFilter, format, path string) (string, int, error) {
	contacts, err := st.ListContacts(ctx, f)
	if err != nil {
		return "", 0, eris.Wrap(err, "list contacts")
	}
	if path == "" {
		path = filepath.Join(cfg.Export.Dir, export.DefaultFilename(time.Now(), format))
	}
	n, err := export.WriteFile(path, format, contacts)
	if err != nil {
		return path, n, err
	}
	zap.L().Info("contacts exported", zap.String("path", path), zap.Int("rows", n))
	return path, n, nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write enriched contacts to a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		_, _, err = exportContacts(ctx, st, store.ContactFilter{
			OwnerID:    orDefault(exportUserID, cfg.Enrich.UserID),
			CampaignID: orDefault(exportCampaignID, cfg.Enrich.CampaignID),
		}, exportFormat, exportOut)
		return err
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCampaignID, "campaign-id", "", "campaign to export (default from config)")
	exportCmd.Flags().StringVar(&exportUserID, "user-id", "", "owner to export (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatCSV, "output format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default: timestamped file in export.dir)")
	rootCmd.AddCommand(exportCmd)
}
