// Command reveal-sweep force-reveals every post that stayed open past the
// reveal window. It is meant for cron-style schedulers and for catching up
// after an outage; the server runs the same sweep in-process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/decept/internal/adapter/redis"
	"github.com/pscheid92/decept/internal/app"
	"github.com/pscheid92/decept/internal/platform/logging"
	"github.com/pscheid92/decept/internal/platform/version"
)

func main() {
	var (
		redisURL    = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (or set REDIS_URL env)")
		revealAfter = flag.Duration("reveal-after", 24*time.Hour, "Age after which an open post is revealed")
		batchSize   = flag.Int("batch-size", 100, "Maximum posts revealed per pass")
		passes      = flag.Int("passes", 1, "Number of passes; stops early once a pass finds nothing")
		timeout     = flag.Duration("timeout", 5*time.Minute, "Time budget per pass")
		dryRun      = flag.Bool("dry-run", false, "List the posts that would be revealed without touching them")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if *redisURL == "" {
		log.Fatal("Redis URL required (--redis or REDIS_URL env)")
	}

	logLevel := "info"
	if *verbose {
		logLevel = "debug"
	}
	slog.SetDefault(logging.NewLogger(os.Stdout, logLevel, "text"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.NewClient(ctx, *redisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() { _ = rdb.Close() }()
	slog.Info("Connected to Redis", "url", sanitizeURL(*redisURL))

	clock := clockwork.NewRealClock()
	stores := app.Stores{
		Posts:  redis.NewPostStore(rdb),
		Votes:  redis.NewVoteLedger(rdb, clock),
		Limits: redis.NewRateLimiter(rdb, clock),
		Stats:  redis.NewStatsStore(rdb),
	}
	revealer := app.NewRevealer(stores, redis.NewEventPublisher(rdb), clock, nil)
	sweeper := app.NewSweeper(stores.Posts, revealer, nil, clock, app.SweepConfig{
		RevealAfter: *revealAfter,
		BatchSize:   *batchSize,
		Timeout:     *timeout,
	}, nil)

	if *dryRun {
		if err := listCandidates(ctx, sweeper, stores); err != nil {
			log.Fatalf("Dry run failed: %v", err)
		}
		return
	}

	var total app.SweepReport
	for pass := 1; pass <= *passes; pass++ {
		report, err := sweeper.RunOnce(ctx)
		if err != nil {
			log.Fatalf("Sweep pass %d failed: %v", pass, err)
		}
		total.Candidates += report.Candidates
		total.Revealed += report.Revealed
		total.Skipped += report.Skipped
		total.Failed += report.Failed

		// A full batch of failures would be listed again, so another pass cannot help.
		if report.Candidates < *batchSize || report.Failed == report.Candidates {
			break
		}
	}

	slog.Info("Sweep summary",
		"candidates", total.Candidates,
		"revealed", total.Revealed,
		"skipped", total.Skipped,
		"failed", total.Failed)

	if total.Failed > 0 {
		os.Exit(1)
	}
}

func listCandidates(ctx context.Context, sweeper *app.Sweeper, stores app.Stores) error {
	ids, err := sweeper.Candidates(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		post, err := stores.Posts.GetPost(ctx, id)
		if err != nil {
			slog.Warn("Candidate could not be loaded", "post_id", id, "error", err)
			continue
		}
		slog.Info("Would reveal",
			"post_id", id,
			"author_id", post.AuthorID,
			"created_at", post.CreatedAt.Format(time.RFC3339),
			"total_votes", post.TotalVotes,
			"revealed_flag", post.Revealed)
	}
	slog.Info("Dry run complete", "candidates", len(ids))
	return nil
}

// sanitizeURL hides the password in a Redis URL for logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
