package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"presenceanalyzer/internal/capture"
	appLog "presenceanalyzer/internal/log"
)

var (
	snapshotPage string
	snapshotOut  string
	snapshotUser int
	snapshotBase string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a PNG of a dashboard page",
	Long: `Opens a page of a running server in headless Chromium and writes a
screenshot once its chart has been drawn.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotPage, "page", "presence_weekday", "dashboard page to capture")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "snapshot.png", "output PNG path")
	snapshotCmd.Flags().IntVar(&snapshotUser, "user", 0, "user id to select (0 leaves the page unselected)")
	snapshotCmd.Flags().StringVar(&snapshotBase, "base-url", "", "server base URL (default http://<listen>)")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	timeout, err := cfg.SnapshotTimeout()
	if err != nil {
		return err
	}

	base := snapshotBase
	if base == "" {
		base = "http://" + cfg.Listen
	}
	target := snapshotURL(base, snapshotPage, snapshotUser)

	appLog.Info("capturing dashboard", "url", target, "out", snapshotOut)
	err = capture.DashboardPNG(cmd.Context(), capture.Options{
		URL:        target,
		OutputPath: snapshotOut,
		Width:      cfg.Snapshot.Width,
		Height:     cfg.Snapshot.Height,
		Timeout:    timeout,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", snapshotOut)
	return nil
}

// snapshotURL builds the /render URL for page, preselecting user when set.
func snapshotURL(base, page string, user int) string {
	u := base + "/render/" + url.PathEscape(page)
	if user > 0 {
		u += "?user=" + url.QueryEscape(fmt.Sprint(user))
	}
	return u
}
