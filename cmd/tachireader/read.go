package cmd

import (
	"fmt"
	"strconv"

	"github.com/kerbaras/tachireader/pkg/app"
	"github.com/kerbaras/tachireader/pkg/app/screens"
	"github.com/kerbaras/tachireader/pkg/logging"
	"github.com/kerbaras/tachireader/pkg/services"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <manga-id> <chapter-index>",
	Short: "Read a chapter in the terminal",
	Long: `Open a chapter and follow its pages as they load.

Reading resumes on the page you stopped at last time. Use --page to start
somewhere else.`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{tuiAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mangaID, chapterIndex, err := parseChapterArgs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		log := logging.FromContext(ctx)

		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		prefs, err := repo.ReaderPreferences()
		if err != nil {
			return err
		}

		controller := services.NewMangaController(newSource(), repo, prefs,
			services.WithLogger(*log), services.WithObserver(startMetrics(ctx)))
		session, err := controller.Open(ctx, mangaID, chapterIndex)
		if err != nil {
			return fmt.Errorf("open chapter: %w", err)
		}

		start := session.StartPage
		if cmd.Flags().Changed("page") {
			page, _ := cmd.Flags().GetInt("page")
			start = max(0, page-1)
		}

		a := app.NewApp(ctx, session.Loader, screens.ReaderOptions{
			Manga:     session.Manga,
			StartPage: start,
			Prefs:     prefs,
			OnClose: func(lastPage int) {
				if err := controller.SaveProgress(session.Chapter, lastPage); err != nil {
					log.Error().Err(err).Msg("could not save reading progress")
				}
			},
		})
		return a.Run(ctx)
	},
}

func init() {
	readCmd.Flags().IntP("page", "p", 0, "Page to start on (1-based)")
}

func parseChapterArgs(args []string) (mangaID, chapterIndex int, err error) {
	if mangaID, err = strconv.Atoi(args[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid manga id %q", args[0])
	}
	if chapterIndex, err = strconv.Atoi(args[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid chapter index %q", args[1])
	}
	return mangaID, chapterIndex, nil
}
