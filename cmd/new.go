package cmd

import (
	"fmt"

	"github.com/conneroisu/stencil/internal/scaffold"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <dir>",
	Short: "Create a new site",
	Long: `Create a new site in dir, which must be missing or empty.

Without --template the built-in skeleton is used: two pages, a base template,
a navigation partial and a stylesheet. With --template a local directory is
copied instead (hidden entries such as .git are left out).

Examples:
  stencil new my-site
  stencil new my-site --title "Field Notes"
  stencil new my-site --template ../site-template`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var (
	newTemplate string
	newTitle    string
)

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringVarP(&newTemplate, "template", "t", "", "local template directory to copy")
	newCmd.Flags().StringVar(&newTitle, "title", "", "site title (default derived from dir)")
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := scaffold.Create(afero.NewOsFs(), args[0], scaffold.Options{
		Template: newTemplate,
		Title:    newTitle,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created site in %s\n\n", s.Root())
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  cd %s\n", args[0])
	fmt.Fprintf(out, "  stencil serve    # http://%s\n", cfg.Server.Address())
	return nil
}
