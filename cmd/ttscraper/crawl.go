package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"ttscraper/internal/batch"
	"ttscraper/pkg/auth"
	"ttscraper/pkg/config"
	"ttscraper/pkg/crawler"
	"ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
	"ttscraper/pkg/report"
	"ttscraper/pkg/scraper"
	"ttscraper/pkg/ui"
)

var (
	// Crawl command flags
	outputDir    string
	databasePath string
	accountName  string
	proxyURL     string
	itemLimit    int
	pageSize     int
	parallel     int
	rateLimit    int
	resume       bool
	forceRestart bool
	noReport     bool
	notify       bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl <username> [username...]",
	Short: "Collect every post of one or more accounts",
	Long: `Collect the complete post list of one or more TikTok accounts.

Posts are written to <output>/<username>/posts.json together with a report.md
summary. Progress is checkpointed after every page: if a crawl is interrupted
or stops early, run the same command with --resume to continue from the last
cursor, or --force-restart to start over.

A session cookie is optional for public accounts but makes the endpoint far
more reliable. It is taken, in order, from --cookie, TTSCRAPER_COOKIE, the
configuration file and the accounts stored with 'ttscraper auth login'.`,
	Example: `  # Crawl one account
  ttscraper crawl someone

  # Only the 100 newest posts, 30 per page
  ttscraper crawl someone --limit 100 --page-size 30

  # Several accounts, two at a time, archived to SQLite
  ttscraper crawl alice bob carol --parallel 2 --db ./posts.db

  # Continue an interrupted crawl
  ttscraper crawl someone --resume`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCrawl,
}

var cookieFlag string

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default ./output)")
	crawlCmd.Flags().StringVar(&databasePath, "db", "", "also archive posts and runs in this SQLite database")
	crawlCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	crawlCmd.Flags().StringVar(&cookieFlag, "cookie", "", "session cookie header to send")
	crawlCmd.Flags().StringVar(&proxyURL, "proxy", "", "HTTP or SOCKS5 proxy URL")
	crawlCmd.Flags().IntVarP(&itemLimit, "limit", "n", 0, "stop after this many posts (0 collects everything)")
	crawlCmd.Flags().IntVar(&pageSize, "page-size", 0, "posts requested per page (default from config)")
	crawlCmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "accounts crawled at once (default from config)")
	crawlCmd.Flags().IntVar(&rateLimit, "rate-limit", -1, "requests per minute across all crawls (0 disables)")
	crawlCmd.Flags().BoolVar(&resume, "resume", false, "resume from the last checkpoint")
	crawlCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "ignore an existing checkpoint")
	crawlCmd.Flags().BoolVar(&noReport, "no-report", false, "do not write report.md")
	crawlCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification per finished account")
	crawlCmd.MarkFlagsMutuallyExclusive("resume", "force-restart")
}

func crawlFlags(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{
		"output":   outputDir,
		"database": databasePath,
		"cookie":   cookieFlag,
		"proxy":    proxyURL,
	}
	if cmd.Flags().Changed("limit") {
		flags["limit"] = itemLimit
	}
	if pageSize > 0 {
		flags["page-size"] = pageSize
	}
	if parallel > 0 {
		flags["parallel"] = parallel
	}
	if rateLimit >= 0 {
		flags["rate-limit"] = rateLimit
	}
	if noReport {
		flags["report"] = false
	}
	return flags
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(crawlFlags(cmd))
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

	notifier := ui.NewNotifier(notify)
	base := scraper.Options{
		ItemLimit:    configuredLimit(cfg),
		Resume:       resume,
		ForceRestart: forceRestart,
	}

	if len(args) == 1 {
		return crawlOne(ctx, s, notifier, args[0], base)
	}

	var failed atomic.Int32
	err = s.ScrapeUsersWith(ctx, args, func(username string) scraper.Options {
		opts := base
		display := ui.NewProgressDisplay(os.Stdout, username, true)
		attachDisplay(&opts, display)
		return opts
	}, func(r batch.Result[*scraper.Outcome]) {
		if !finishAccount(notifier, r.Job.Username, r.Value, r.Err) {
			failed.Add(1)
		}
	})
	if err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d accounts failed", n, len(args))
	}
	return nil
}

func crawlOne(ctx context.Context, s *scraper.Scraper, notifier *ui.Notifier, username string, opts scraper.Options) error {
	ui.PrintInfo("Target Profile", username)

	display := ui.NewProgressDisplay(os.Stdout, username, verbose)
	attachDisplay(&opts, display)

	outcome, err := s.ScrapeUserPosts(ctx, username, opts)
	if outcome != nil {
		display.Complete(outcome.State, outcome.TotalPosts, outcome.Completeness)
	}
	if !finishAccount(notifier, username, outcome, err) {
		return fmt.Errorf("crawl of @%s failed", username)
	}
	return nil
}

func attachDisplay(opts *scraper.Options, display *ui.ProgressDisplay) {
	opts.OnResolved = func(identity *models.Identity, resumedPosts int) {
		display.SetExpected(identity.ItemCountHint)
		display.SetResumed(resumedPosts)
	}
	opts.Progress = display.Update
}

// finishAccount reports one account's result and whether it counts as a success
func finishAccount(notifier *ui.Notifier, username string, outcome *scraper.Outcome, err error) bool {
	log := logger.WithField("username", username)

	switch {
	case stderrors.Is(err, scraper.ErrCheckpointExists):
		ui.PrintWarning(fmt.Sprintf("@%s has an unfinished crawl", username))
		fmt.Println("  Continue it with --resume or start over with --force-restart")
		return false
	case stderrors.Is(err, context.Canceled):
		if outcome != nil && outcome.TotalPosts > 0 {
			ui.PrintWarning(fmt.Sprintf("Interrupted, %d posts of @%s saved", outcome.TotalPosts, username))
			fmt.Println("  Continue with --resume")
		}
		return false
	case err != nil:
		log.WithError(err).Error("Crawl failed")
		if stderrors.Is(err, errors.ErrNoData) {
			notifier.SendError("No posts collected", fmt.Sprintf("@%s: %v", username, err))
		} else {
			notifier.SendError("Crawl failed", fmt.Sprintf("@%s: %v", username, err))
		}
		return false
	}

	if outcome.PostsPath != "" {
		ui.PrintInfo("Posts", outcome.PostsPath)
	}
	if outcome.ReportPath != "" {
		ui.PrintInfo("Report", outcome.ReportPath)
	}
	if outcome.Result.LastError != nil {
		ui.PrintWarning("Stopped early", outcome.Result.LastError)
		fmt.Println("  The checkpoint was kept, continue later with --resume")
	}

	msg := fmt.Sprintf("@%s: %d posts (%s complete)", username, outcome.TotalPosts, report.CompletenessText(outcome.Completeness))
	if outcome.State == crawler.Done && outcome.Result.LastError == nil {
		notifier.SendSuccess("Crawl complete", msg)
	} else {
		notifier.SendNotification("Crawl stopped", msg+", "+outcome.State.String())
	}
	return true
}

func configuredLimit(cfg *config.Config) *int {
	if cfg.Crawl.ItemLimit <= 0 {
		return nil
	}
	return crawler.Limit(cfg.Crawl.ItemLimit)
}

// applyStoredCredentials fills the session cookie from the credential store
// when neither flags, environment nor config provided one
func applyStoredCredentials(cfg *config.Config, name string) error {
	if cfg.TikTok.Cookie != "" && name == "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialise credential manager: %w", err)
	}

	var account *auth.Account
	if name != "" {
		account, err = manager.Retrieve(name)
		if err != nil {
			return fmt.Errorf("stored account %q not found, see 'ttscraper auth list': %w", name, err)
		}
	} else {
		account, err = manager.RetrieveDefault()
		if err != nil {
			logger.GetLogger().Warn("No session cookie configured, public listings may come back empty")
			return nil
		}
	}

	cfg.TikTok.Cookie = account.Cookie
	if account.UserAgent != "" {
		cfg.TikTok.UserAgent = account.UserAgent
	}
	logger.WithField("account", account.Username).Info("Using stored credentials")
	return nil
}
