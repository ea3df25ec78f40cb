package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site",
	Long: `Build every page of the site and copy static assets.

Pages are built into a staging directory first; the output directory is only
replaced once every page built successfully.

Examples:
  stencil build               # Build into output/local
  stencil build --release     # Build into output/release
  stencil build -r ./docs     # Build the site rooted at ./docs`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var buildRelease bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildRelease, "release", false, "publish into the release directory")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := openSite(cfg, logger, buildRelease)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := s.Build(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %s into %s in %s\n",
		s.Root(), s.PublishDir(), time.Since(start).Round(time.Millisecond))
	return nil
}
