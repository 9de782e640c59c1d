package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"ttscraper/pkg/crawler"
	"ttscraper/pkg/scraper"
	"ttscraper/pkg/ui"
)

var probeSizes []int

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate <username>",
	Short: "Measure the largest page size the endpoint honours",
	Long: `Request the first page of an account at several page sizes and report how
many posts came back for each. The endpoint silently caps the page size, so
asking for more than it honours only makes the cursor arithmetic harder.

Use the recommended value as crawl.page_size or --page-size.`,
	Example: `  ttscraper calibrate someone
  ttscraper calibrate someone --sizes 20,30,35`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	calibrateCmd.Flags().IntSliceVar(&probeSizes, "sizes", crawler.DefaultProbeSizes, "page sizes to probe")
	calibrateCmd.Flags().StringVar(&cookieFlag, "cookie", "", "session cookie header to send")
	calibrateCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(map[string]interface{}{"cookie": cookieFlag})
	if err != nil {
		return err
	}
	if err := applyStoredCredentials(cfg, accountName); err != nil {
		return err
	}

	s, err := scraper.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise scraper: %w", err)
	}
	defer s.Close()

	ui.PrintInfo("Target Profile", args[0])
	cal, err := s.Calibrate(ctx, args[0], probeSizes)
	if cal != nil {
		for _, p := range cal.Probes {
			line := fmt.Sprintf("  requested %3d, got %3d (%s)", p.PageSize, p.Returned, p.Outcome)
			if p.Err != nil {
				line += " " + ui.Red(p.Err.Error())
			}
			fmt.Println(line)
		}
	}
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}

	ui.PrintSuccess("Recommended page size: " + strconv.Itoa(cal.Recommended))
	return nil
}
