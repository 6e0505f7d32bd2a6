package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"presenceanalyzer/internal/directory"
)

var updateXMLCmd = &cobra.Command{
	Use:   "update-xml",
	Short: "Download the user directory XML once",
	Long:  `Fetches directory.url into data.xml, skipping the write when the server reports no change.`,
	Args:  cobra.NoArgs,
	RunE:  runUpdateXML,
}

func init() {
	rootCmd.AddCommand(updateXMLCmd)
}

func runUpdateXML(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Directory.URL == "" {
		return fmt.Errorf("directory.url is not set in %s", getConfigPath())
	}
	timeout, err := cfg.DirectoryTimeout()
	if err != nil {
		return err
	}

	res, err := directory.NewFetcher(timeout).Fetch(cmd.Context(), cfg.Directory.URL, cfg.Data.XML)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.NotModified {
		fmt.Fprintf(out, "%s is up to date\n", res.Path)
		return nil
	}
	fmt.Fprintf(out, "Wrote %s (%s, %d users)\n", res.Path, humanize.Bytes(uint64(res.Size)), res.Users)
	return nil
}
