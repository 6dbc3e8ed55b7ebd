package service

import (
	"context"
	"sync"
	"time"

	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CronRunReport is what one scheduled run did
type CronRunReport struct {
	Generation   GenerationSummary `json:"generation"`
	ImageRepair  RepairSummary     `json:"image_repair"`
	ViewsFlushed int               `json:"views_flushed"`
	StartedAt    time.Time         `json:"started_at"`
	Duration     string            `json:"duration"`
}

// CronJob is the scheduled pipeline pass: generate drafts, repair images, flush view counters
type CronJob struct {
	generation    *GenerationService
	images        *ImageService
	articles      *ArticleService
	defaultTopics []string
	repairLimit   int

	mu      sync.Mutex
	running bool
	log     zerolog.Logger
}

// NewCronJob creates a new CronJob
func NewCronJob(generation *GenerationService, images *ImageService, articles *ArticleService, defaultTopics []string, repairLimit int) *CronJob {
	if repairLimit <= 0 {
		repairLimit = 20
	}
	return &CronJob{
		generation:    generation,
		images:        images,
		articles:      articles,
		defaultTopics: defaultTopics,
		repairLimit:   repairLimit,
		log:           pkglogger.WithComponent("cron"),
	}
}

// Run executes one pass. Overlapping runs are refused (ok=false).
func (j *CronJob) Run(ctx context.Context, topics []string) (report CronRunReport, ok bool) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return report, false
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	report.StartedAt = time.Now()
	if len(topics) == 0 {
		topics = j.defaultTopics
	}

	if j.generation != nil && len(topics) > 0 {
		report.Generation = j.generation.GenerateBatch(ctx, topics)
	}
	if j.images != nil {
		summary, err := j.images.RepairMissingImages(ctx, j.repairLimit)
		if err != nil {
			j.log.Warn().Err(err).Msg("image repair pass failed")
		}
		report.ImageRepair = summary
	}
	if j.articles != nil {
		n, err := j.articles.FlushViews(ctx)
		if err != nil {
			j.log.Warn().Err(err).Msg("view flush failed")
		}
		report.ViewsFlushed = n
	}

	report.Duration = time.Since(report.StartedAt).Round(time.Millisecond).String()
	j.log.Info().
		Int("created", report.Generation.Created).
		Int("repaired", report.ImageRepair.Repaired).
		Int("views_flushed", report.ViewsFlushed).
		Str("duration", report.Duration).
		Msg("cron run finished")
	return report, true
}

// Schedule registers the job on a robfig cron with the given spec (e.g. "0 */6 * * *").
// The returned scheduler is not started.
func (j *CronJob) Schedule(spec string) (*cron.Cron, error) {
	logger := cron.PrintfLogger(cronPrintf{log: j.log})
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))
	_, err := c.AddFunc(spec, func() {
		if _, ok := j.Run(context.Background(), nil); !ok {
			j.log.Warn().Msg("previous cron run still in progress, skipped")
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// cronPrintf routes robfig/cron output (recovered panics, errors) into zerolog
type cronPrintf struct {
	log zerolog.Logger
}

func (p cronPrintf) Printf(format string, args ...interface{}) {
	p.log.Error().Msgf(format, args...)
}
