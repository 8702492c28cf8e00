package cmd

import (
	"fmt"
	"strconv"

	"github.com/kerbaras/tachireader/pkg/app/components"
	"github.com/kerbaras/tachireader/pkg/logging"
	"github.com/kerbaras/tachireader/pkg/services"
	"github.com/spf13/cobra"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters <manga-id>",
	Short: "List the chapters of a manga",
	Long:  "Display the chapters of a manga with their page counts and your reading progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mangaID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid manga id %q", args[0])
		}
		ctx := cmd.Context()

		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		prefs, err := repo.ReaderPreferences()
		if err != nil {
			return err
		}

		source := newSource()
		controller := services.NewMangaController(source, repo, prefs,
			services.WithLogger(*logging.FromContext(ctx)))
		manga, err := source.GetManga(ctx, mangaID)
		if err != nil {
			return err
		}
		chapters, progress, err := controller.Chapters(ctx, mangaID)
		if err != nil {
			return err
		}

		if len(chapters) == 0 {
			fmt.Printf("📚 %s has no chapters.\n", manga.Title)
			return nil
		}

		t := components.NewChapterTable(chapters, progress)
		fmt.Printf("\n📚 %s (%d chapters)\n\n", manga.Title, len(chapters))
		fmt.Println(t.View())
		return nil
	},
}
