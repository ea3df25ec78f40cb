package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove built output",
	Long:  `Remove both the local output directory and the release directory.`,
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openSite(cfg, logger, false)
	if err != nil {
		return err
	}

	if err := s.Clean(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s and %s\n", s.OutputDir(), s.ReleaseDir())
	return nil
}
