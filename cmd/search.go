package main

import (
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/linkedin"
)

var (
	searchCampaignID string
	searchUserID     string
)

// parseQuery reads <keyword> <location> <industry> [pages]. Each of the
// first three may list several comma-separated values.
func parseQuery(args []string) (linkedin.Query, error) {
	q := linkedin.Query{
		Keywords:   splitList(args[0]),
		Locations:  splitList(args[1]),
		Industries: splitList(args[2]),
		MaxPages:   1,
	}
	if len(q.Keywords) == 0 {
		return q, eris.New("keyword is required")
	}
	if len(args) > 3 {
		n, err := strconv.Atoi(args[3])
		if err != nil || n < 1 {
			return q, eris.Errorf("invalid page count %q", args[3])
		}
		q.MaxPages = n
	}
	return q, nil
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword> <location> <industry> [pages]",
	Short: "Search LinkedIn people results and save the profiles",
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

		campaignID := orDefault(searchCampaignID, cfg.Enrich.CampaignID)
		userID := orDefault(searchUserID, cfg.Enrich.UserID)

		saved, err := newTasks(cfg, st).search(ctx, q, userID, campaignID)
		if err != nil {
			return eris.Wrap(err, "search")
		}
		zap.L().Info("search complete", zap.Int("saved", saved), zap.String("campaign_id", campaignID))
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCampaignID, "campaign-id", "", "campaign to stamp on saved profiles (default from config)")
	searchCmd.Flags().StringVar(&searchUserID, "user-id", "", "owner to stamp on saved profiles (default from config)")
	rootCmd.AddCommand(searchCmd)
}
