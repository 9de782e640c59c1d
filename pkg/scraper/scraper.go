package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"ttscraper/internal/batch"
	"ttscraper/pkg/checkpoint"
	"ttscraper/pkg/config"
	"ttscraper/pkg/crawler"
	"ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/metadata"
	"ttscraper/pkg/models"
	"ttscraper/pkg/ratelimit"
	"ttscraper/pkg/report"
	"ttscraper/pkg/storage"
	"ttscraper/pkg/tiktok"
)

// ErrCheckpointExists is returned when an earlier crawl left a checkpoint and
// neither resume nor restart was requested
var ErrCheckpointExists = stderrors.New("checkpoint exists - use --resume to continue or --force-restart to start fresh")

// Options are the per-account crawl options
type Options struct {
	// ItemLimit caps the total number of posts, counting resumed ones; nil means all
	ItemLimit *int
	// PageSize overrides the configured page size when positive
	PageSize     int
	Resume       bool
	ForceRestart bool
	// OnResolved is called once the account is resolved, before the first page
	OnResolved func(identity *models.Identity, resumedPosts int)
	// Progress is called after every page
	Progress crawler.ProgressFunc
}

// Outcome is what one account's crawl produced
type Outcome struct {
	Username   string
	Identity   *models.Identity
	Posts      []metadata.Post
	TotalPosts int
	// Completeness is TotalPosts over the advertised count, or -1 when unknown
	Completeness float64
	State        crawler.State
	Result       *crawler.Result
	Resumed      bool
	RunID        string
	PostsPath    string
	ReportPath   string
}

// Scraper resolves accounts, crawls their posts and persists the results
type Scraper struct {
	client        Client
	controller    *crawler.Controller
	storage       *storage.Manager
	db            *storage.SQLiteStore
	checkpointDir string
	writeReport   bool
	parallel      int
	config        *config.Config
	logger        logger.Logger
}

// Option customises a Scraper
type Option func(*Scraper)

// WithClient replaces the TikTok client built from the configuration
func WithClient(c Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithCheckpointDir stores checkpoints in dir instead of the XDG data directory
func WithCheckpointDir(dir string) Option {
	return func(s *Scraper) { s.checkpointDir = dir }
}

// WithController replaces the controller built from the crawl configuration
func WithController(c *crawler.Controller) Option {
	return func(s *Scraper) { s.controller = c }
}

// New creates a Scraper from cfg
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	s := &Scraper{
		config:        cfg,
		checkpointDir: checkpoint.DataDirectory(),
		writeReport:   cfg.Output.WriteReport,
		parallel:      cfg.Crawl.Parallel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}

	if s.client == nil {
		client, err := tiktok.NewClient(tiktok.Options{
			BaseURL:   cfg.TikTok.BaseURL,
			UserAgent: cfg.TikTok.UserAgent,
			Cookie:    cfg.TikTok.Cookie,
			Timeout:   cfg.HTTP.Timeout,
			Proxy:     cfg.HTTP.Proxy,
			Limiter:   ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
			Logger:    s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		s.client = client
	}

	if s.controller == nil {
		s.controller = crawler.NewController(s.client, crawler.ConfigFromSettings(cfg.Crawl), s.logger)
	}

	manager, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.CreateUserFolders)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}
	s.storage = manager

	if cfg.Storage.DatabasePath != "" {
		db, err := storage.OpenSQLite(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.db = db
	}

	return s, nil
}

// Close releases the database, if one is open
func (s *Scraper) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Storage returns the output manager
func (s *Scraper) Storage() *storage.Manager {
	return s.storage
}

// ScrapeUserPosts resolves username, crawls every post and writes posts.json
// (and report.md when enabled).
//
// The Outcome is non-nil whenever the account was resolved. On cancellation
// or a partial crawl it holds what was collected and the checkpoint is kept
// for --resume. Nothing collected returns an error wrapping errors.ErrNoData.
func (s *Scraper) ScrapeUserPosts(ctx context.Context, username string, opts Options) (*Outcome, error) {
	username = tiktok.NormalizeUsername(username)
	log := s.logger.WithField("username", username)

	cpm, err := checkpoint.NewManagerInDir(s.checkpointDir, username, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}

	var cp *checkpoint.Checkpoint
	switch {
	case opts.ForceRestart && cpm.Exists():
		if err := cpm.Delete(); err != nil {
			log.WithError(err).Warn("Failed to delete existing checkpoint")
		}
		log.Info("Ignoring existing checkpoint")
	case opts.Resume && cpm.Exists():
		cp, err = cpm.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
	case cpm.Exists():
		return nil, ErrCheckpointExists
	}

	identity, err := s.client.ResolveIdentity(ctx, username)
	if err != nil {
		log.WithError(err).Error("Failed to resolve user")
		if errors.TypeOf(err) == errors.ErrorTypeNotFound {
			return nil, fmt.Errorf("user not found: %s: %w", username, err)
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if identity.Private {
		log.Warn("Account is private, the listing will likely be empty")
	}

	if cp != nil && cp.Handle != string(identity.Handle) {
		log.WarnWithFields("Checkpoint belongs to a different account id, starting fresh", map[string]interface{}{
			"checkpoint_handle": cp.Handle,
		})
		cp = nil
	}
	resumed := cp != nil
	if cp == nil {
		cp, err = cpm.Create(username, string(identity.Handle))
		if err != nil {
			log.WithError(err).Warn("Failed to create checkpoint, continuing without one")
			cp = &checkpoint.Checkpoint{Username: username, Handle: string(identity.Handle)}
		}
	}

	// Persistence must outlive a cancelled crawl
	persistCtx := context.WithoutCancel(ctx)

	var runID string
	if s.db != nil {
		runID, err = s.db.StartRun(persistCtx, username, string(identity.Handle), identity.ItemCountHint)
		if err != nil {
			log.WithError(err).Warn("Failed to record crawl run")
		}
	}

	crawlOpts := crawler.Options{
		PageSize:      opts.PageSize,
		StartCursor:   cp.Cursor,
		Seen:          cp.SeenIDs,
		ItemCountHint: identity.ItemCountHint,
	}
	if opts.ItemLimit != nil {
		crawlOpts.ItemLimit = crawler.Limit(max(*opts.ItemLimit-len(cp.SeenIDs), 0))
	}

	if opts.OnResolved != nil {
		opts.OnResolved(identity, len(cp.SeenIDs))
	}

	basePages := cp.Pages
	controller := s.controller.WithObserver(func(p crawler.Progress) {
		// Cursors advanced past empty pages are not persisted, so a resumed
		// crawl re-probes them
		if len(p.NewItems) > 0 || p.State == crawler.Running {
			if err := cpm.RecordPage(cp, p.Cursor, basePages+p.Page, itemIDs(p.NewItems)); err != nil {
				log.WithError(err).Warn("Failed to update checkpoint")
			}
		}
		if s.db != nil && len(p.NewItems) > 0 {
			if err := s.db.UpsertPosts(persistCtx, username, metadata.Normalize(p.NewItems)); err != nil {
				log.WithError(err).Warn("Failed to store posts in database")
			}
		}
		if opts.Progress != nil {
			opts.Progress(p)
		}
	})

	res, crawlErr := controller.Crawl(ctx, identity.Handle, crawlOpts)

	posts := metadata.Normalize(res.Items)
	if resumed {
		previous, err := s.storage.LoadPosts(username)
		if err != nil {
			log.WithError(err).Warn("Failed to load previous posts, keeping only this run")
		} else if previous != nil {
			posts = storage.MergePosts(previous.Posts, posts)
		}
	}

	outcome := &Outcome{
		Username:     username,
		Identity:     identity,
		Posts:        posts,
		TotalPosts:   len(posts),
		Completeness: completeness(len(posts), identity.ItemCountHint),
		State:        res.State,
		Result:       res,
		Resumed:      resumed,
		RunID:        runID,
	}

	s.finishRun(persistCtx, log, outcome, crawlErr)

	if len(posts) == 0 {
		settleCheckpoint(log, cpm, res, resumed)
		if crawlErr == nil {
			crawlErr = errors.ErrNoData
		}
		return outcome, crawlErr
	}

	if err := s.save(log, outcome); err != nil {
		return outcome, err
	}
	settleCheckpoint(log, cpm, res, resumed)

	log.InfoWithFields("Crawl finished", map[string]interface{}{
		"state":        res.State.String(),
		"total_posts":  outcome.TotalPosts,
		"completeness": outcome.Completeness,
		"pages":        res.Pages,
	})
	return outcome, crawlErr
}

// save writes posts.json and, when enabled, report.md
func (s *Scraper) save(log logger.Logger, o *Outcome) error {
	lastErr := ""
	if o.Result.LastError != nil {
		lastErr = o.Result.LastError.Error()
	}

	now := time.Now().UTC()
	err := s.storage.SavePosts(&storage.PostsFile{
		Username:     o.Username,
		SecUID:       string(o.Identity.Handle),
		CollectedAt:  now,
		State:        o.State.String(),
		TotalPosts:   o.TotalPosts,
		Completeness: o.Completeness,
		Posts:        o.Posts,
	})
	if err != nil {
		log.WithError(err).Error("Failed to save posts")
		return fmt.Errorf("failed to save posts: %w", err)
	}
	o.PostsPath = s.storage.PostsPath(o.Username)

	if !s.writeReport {
		return nil
	}

	summary := report.Summarize(report.Input{
		Username:      o.Username,
		Nickname:      o.Identity.Nickname,
		State:         o.State.String(),
		CollectedAt:   now,
		ItemCountHint: o.Identity.ItemCountHint,
		Completeness:  o.Completeness,
		LastError:     lastErr,
		Posts:         o.Posts,
	}, report.DefaultTopN)

	rendered, err := report.Render(summary)
	if err != nil {
		log.WithError(err).Warn("Failed to render report")
		return nil
	}
	if err := s.storage.SaveReport(o.Username, rendered); err != nil {
		log.WithError(err).Warn("Failed to save report")
		return nil
	}
	o.ReportPath = s.storage.ReportPath(o.Username)
	return nil
}

func (s *Scraper) finishRun(ctx context.Context, log logger.Logger, o *Outcome, crawlErr error) {
	if s.db == nil || o.RunID == "" {
		return
	}
	run := &storage.CrawlRun{
		ID:          o.RunID,
		State:       o.State.String(),
		Items:       o.TotalPosts,
		Pages:       o.Result.Pages,
		FinalCursor: o.Result.FinalCursor,
	}
	if crawlErr != nil {
		run.Error = crawlErr.Error()
	} else if o.Result.LastError != nil {
		run.Error = o.Result.LastError.Error()
	}
	if err := s.db.FinishRun(ctx, run); err != nil {
		log.WithError(err).Warn("Failed to finish crawl run")
	}
}

// ScrapeUsers crawls several accounts concurrently, bounded by the configured
// parallelism. Results are in input order; per-account errors are in each Result.
func (s *Scraper) ScrapeUsers(ctx context.Context, usernames []string, opts Options) ([]batch.Result[*Outcome], error) {
	pool := batch.NewPool(s.parallel, func(ctx context.Context, job batch.Job) (*Outcome, error) {
		return s.ScrapeUserPosts(ctx, job.Username, opts)
	}, nil, s.logger)
	return pool.Run(ctx, usernames)
}

// ScrapeUsersWith is ScrapeUsers with per-account options, reporting each
// account to onDone as soon as it finishes
func (s *Scraper) ScrapeUsersWith(ctx context.Context, usernames []string, optsFor func(username string) Options, onDone func(batch.Result[*Outcome])) error {
	pool := batch.NewPool(s.parallel, func(ctx context.Context, job batch.Job) (*Outcome, error) {
		return s.ScrapeUserPosts(ctx, job.Username, optsFor(job.Username))
	}, nil, s.logger)
	return pool.RunWithCallback(ctx, usernames, onDone)
}

// Calibrate resolves username and probes which page sizes the endpoint honours
func (s *Scraper) Calibrate(ctx context.Context, username string, sizes []int) (*crawler.Calibration, error) {
	identity, err := s.client.ResolveIdentity(ctx, tiktok.NormalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return s.controller.Calibrate(ctx, identity.Handle, sizes)
}

// settleCheckpoint removes the checkpoint once there is nothing left to resume
func settleCheckpoint(log logger.Logger, cpm *checkpoint.Manager, res *crawler.Result, resumed bool) {
	finished := res.State == crawler.Done && res.LastError == nil
	if !finished && !(res.State == crawler.Aborted && !resumed) {
		return
	}
	if err := cpm.Delete(); err != nil {
		log.WithError(err).Warn("Failed to delete checkpoint")
	}
}

func itemIDs(items []models.RawItem) []string {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

func completeness(collected, hint int) float64 {
	if hint <= 0 {
		return -1
	}
	return min(float64(collected)/float64(hint), 1)
}
