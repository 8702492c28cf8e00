package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kerbaras/tachireader/pkg/app/components"
	"github.com/kerbaras/tachireader/pkg/integrations"
	"github.com/kerbaras/tachireader/pkg/logging"
	"github.com/kerbaras/tachireader/pkg/services"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <manga-id> <chapter-index>",
	Short: "Download every page of a chapter",
	Long: `Download every page of a chapter and save it as numbered images or as an EPub.

Use --device to fit the pages to an e-reader screen. Failed pages are retried
before giving up.

Examples:
  tachireader fetch 12 3 --epub
  tachireader fetch 12 3 --epub --device kindle-paperwhite3
  tachireader fetch 12 3 -o ~/manga --max-width 1200 --grayscale

Use 'tachireader fetch --list-devices' to see all supported devices.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if listDevices, _ := cmd.Flags().GetBool("list-devices"); listDevices {
			return nil
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if listDevices, _ := cmd.Flags().GetBool("list-devices"); listDevices {
			fmt.Println("📱 Supported devices:")
			fmt.Println(components.DeviceListing())
			return nil
		}

		mangaID, chapterIndex, err := parseChapterArgs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		log := logging.FromContext(ctx)

		processor, err := imageProcessor(cmd)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		asEPub, _ := cmd.Flags().GetBool("epub")
		retries, _ := cmd.Flags().GetInt("retries")

		var exporter integrations.Exporter = integrations.NewDirExporter(output, processor)
		if asEPub {
			exporter = integrations.NewEPubBuilder(output, processor)
		}

		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		prefs, err := repo.ReaderPreferences()
		if err != nil {
			return err
		}
		threads, _ := cmd.Flags().GetInt("threads")
		if threads <= 0 {
			threads = prefs.Threads()
		}

		source := newSource()
		observer := startMetrics(ctx)
		controller := services.NewMangaController(source, repo, prefs, services.WithLogger(*log))
		manga, chapter, err := controller.Resolve(ctx, mangaID, chapterIndex)
		if err != nil {
			return fmt.Errorf("resolve chapter: %w", err)
		}
		fmt.Printf("📚 %s - %s\n", manga.Title, chapter)

		downloader := services.NewDownloader(source, threads, exporter,
			services.WithRetries(retries),
			services.WithDownloadLogger(*log),
			services.WithDownloadObserver(observer))

		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			updates := downloader.Progress()
			for {
				select {
				case progress := <-updates:
					printProgress(progress)
				case <-stop:
					// every update was sent before DownloadChapter returned
					for {
						select {
						case progress := <-updates:
							printProgress(progress)
						default:
							return
						}
					}
				}
			}
		}()

		path, err := downloader.DownloadChapter(ctx, manga, chapter)
		close(stop)
		<-done
		if err != nil {
			fmt.Println()
			return fmt.Errorf("download failed: %w", err)
		}
		fmt.Printf("✅ Saved to %s\n", path)
		return nil
	},
}

func init() {
	homeDir, _ := os.UserHomeDir()
	fetchCmd.Flags().StringP("output", "o", filepath.Join(homeDir, "Downloads"), "Output directory")
	fetchCmd.Flags().Bool("epub", false, "Save the chapter as an EPub")
	fetchCmd.Flags().StringP("device", "d", "", "Fit pages to a device screen")
	fetchCmd.Flags().Int("max-width", 0, "Maximum page width in pixels")
	fetchCmd.Flags().Int("max-height", 0, "Maximum page height in pixels")
	fetchCmd.Flags().Bool("grayscale", false, "Convert pages to grayscale")
	fetchCmd.Flags().Int("quality", 0, "JPEG quality (1-100)")
	fetchCmd.Flags().Int("retries", 2, "Retry failed pages this many times")
	fetchCmd.Flags().IntP("threads", "t", 0, "Concurrent page downloads (0 = use preferences)")
	fetchCmd.Flags().Bool("list-devices", false, "List supported devices")
}

func printProgress(progress services.DownloadProgress) {
	switch progress.Status {
	case "downloading":
		label := "  Pages"
		if progress.Attempt > 0 {
			label = fmt.Sprintf("  Retry %d", progress.Attempt)
		}
		fmt.Printf("\r%s", components.DownloadLine(label, progress.Ready, progress.Failed, progress.TotalPages, 30))
	case "exporting":
		fmt.Println()
		fmt.Println("📦 Exporting...")
	}
}

// imageProcessor builds the page processor from the device and image flags,
// or returns nil when pages should be saved as fetched.
func imageProcessor(cmd *cobra.Command) (*integrations.ImageProcessor, error) {
	var settings integrations.ImageSettings
	configured := false

	if deviceID, _ := cmd.Flags().GetString("device"); deviceID != "" {
		device, ok := integrations.GetDevice(deviceID)
		if !ok {
			return nil, fmt.Errorf("unknown device: %s. Use --list-devices to see available options", deviceID)
		}
		settings = device.Settings()
		configured = true
	}

	flags := cmd.Flags()
	if flags.Changed("max-width") {
		settings.MaxWidth, _ = flags.GetInt("max-width")
		configured = true
	}
	if flags.Changed("max-height") {
		settings.MaxHeight, _ = flags.GetInt("max-height")
		configured = true
	}
	if flags.Changed("grayscale") {
		settings.Grayscale, _ = flags.GetBool("grayscale")
		configured = true
	}
	if flags.Changed("quality") {
		settings.Quality, _ = flags.GetInt("quality")
		configured = true
	}

	if !configured {
		return nil, nil
	}
	return integrations.NewImageProcessor(settings), nil
}
