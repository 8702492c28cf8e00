package cmd

import (
	"fmt"

	"github.com/kerbaras/tachireader/pkg/app/components"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change reader preferences",
	Long: `Show or change how pages are loaded.

  --threads   number of pages fetched at the same time
  --preload   number of pages fetched ahead of the one you are reading

Examples:
  tachireader prefs
  tachireader prefs --threads 4 --preload 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		prefs, err := repo.ReaderPreferences()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("threads") {
			threads, _ := cmd.Flags().GetInt("threads")
			if err := prefs.SetThreads(threads); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("preload") {
			preload, _ := cmd.Flags().GetInt("preload")
			if err := prefs.SetPreload(preload); err != nil {
				return err
			}
		}

		fmt.Println("⚙️  Reader preferences:")
		fmt.Println(components.PreferenceListing(prefs))
		return nil
	},
}

func init() {
	prefsCmd.Flags().Int("threads", 0, "Pages fetched concurrently (at least 1)")
	prefsCmd.Flags().Int("preload", 0, "Pages preloaded after the current one")
}
