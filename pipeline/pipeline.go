// Package pipeline runs the three stages of an attendance scrape: roster
// discovery, per-member attendance collection and aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/mp-attendance/config"
	"github.com/aluiziolira/mp-attendance/models"
	"github.com/aluiziolira/mp-attendance/parser"
	"github.com/aluiziolira/mp-attendance/scraper"
	"github.com/aluiziolira/mp-attendance/stats"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Version is recorded in every snapshot's metadata.
const Version = "1.1"

var (
	// ErrEmptyRoster is returned when directory discovery finds no members.
	ErrEmptyRoster = errors.New("pipeline: roster is empty")

	// ErrNoCompletedMembers is returned when the run ends before any
	// member's attendance was collected.
	ErrNoCompletedMembers = errors.New("pipeline: no member completed")
)

// Fetcher returns the markup at a URL. *scraper.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// resultFiller is implemented by fetchers that keep request diagnostics.
type resultFiller interface {
	Fill(result *models.RunResult)
}

// Pipeline coordinates the stages of one run.
type Pipeline struct {
	cfg     *config.Config
	fetcher Fetcher
	metrics *scraper.Metrics
	now     func() time.Time

	mu      sync.Mutex // guards skipped/entries
	skipped map[string]int
	entries []models.MemberAttendance
}

// New builds a pipeline. metrics may be nil.
func New(cfg *config.Config, fetcher Fetcher, metrics *scraper.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		metrics: metrics,
		now:     time.Now,
		skipped: make(map[string]int),
	}
}

// Run executes all stages and returns the snapshot to persist. Cancellation
// during collection yields a snapshot of the members completed so far,
// marked partial. Cancellation during discovery, an empty roster, or a run
// that completes no member returns an error and no snapshot.
func (p *Pipeline) Run(ctx context.Context) (*models.Snapshot, *models.RunResult, error) {
	result := &models.RunResult{StartTime: p.now()}
	p.mu.Lock()
	p.skipped = make(map[string]int)
	p.entries = nil
	p.mu.Unlock()

	members, err := p.DiscoverRoster(ctx)
	if len(members) == 0 {
		p.finish(result, nil)
		if err != nil {
			return nil, result, fmt.Errorf("%w: %w", ErrEmptyRoster, err)
		}
		return nil, result, ErrEmptyRoster
	}
	if err != nil {
		p.finish(result, nil)
		return nil, result, fmt.Errorf("discover roster: %w", err)
	}
	slog.Info("roster discovered", slog.Int("members", len(members)))

	entries := p.CollectAttendance(ctx, members)
	completed := make([]models.MemberAttendance, 0, len(entries))
	for _, e := range entries {
		if e.Completed {
			completed = append(completed, e)
		}
	}
	if len(completed) == 0 {
		p.finish(result, nil)
		if err := ctx.Err(); err != nil {
			return nil, result, fmt.Errorf("%w: %w", ErrNoCompletedMembers, err)
		}
		return nil, result, ErrNoCompletedMembers
	}
	partial := len(completed) < len(members)
	if partial {
		slog.Warn("run interrupted, keeping completed members",
			slog.Int("completed", len(completed)),
			slog.Int("roster", len(members)),
		)
	}

	p.mu.Lock()
	p.entries = completed
	p.mu.Unlock()

	p.finish(result, completed)
	return p.snapshot(completed, partial), result, nil
}

// DiscoverRoster walks the paginated directory and returns members in
// first-seen order, deduplicated by id over the last DedupeMaxSize ids. It
// stops at a page with no new members, a page that cannot be fetched, or
// MaxDirectoryPages. On cancellation it returns the members found so far
// together with ctx's error.
func (p *Pipeline) DiscoverRoster(ctx context.Context) ([]models.Member, error) {
	seen, err := lru.New[string, struct{}](p.cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe set: %w", err)
	}
	var members []models.Member

	for page := 1; page <= p.cfg.MaxDirectoryPages; page++ {
		if err := ctx.Err(); err != nil {
			return members, err
		}

		pageURL := p.directoryURL(page)
		markup, err := p.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return members, ctxErr
			}
			slog.Warn("directory page unavailable, stopping discovery",
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}

		parsed := parser.ParseDirectory(markup)
		skipped := parsed.Skipped
		added := 0
		for _, m := range parsed.Members {
			if err := parser.ValidateMember(&m); err != nil {
				skipped++
				continue
			}
			if seen.Contains(m.ID) {
				p.metrics.IncDuplicate()
				continue
			}
			seen.Add(m.ID, struct{}{})
			members = append(members, m)
			added++
		}
		p.addSkipped("directory", skipped)
		p.metrics.AddParsed("directory", len(parsed.Members), skipped)

		slog.Debug("directory page parsed",
			slog.Int("page", page),
			slog.Int("new_members", added),
			slog.Int("skipped", skipped),
		)
		if added == 0 {
			break
		}
	}

	return members, nil
}

// CollectAttendance gathers records for every member on a pool of
// Parallelism workers. The result is indexed like members; entries for
// members that were never finished have Completed == false.
func (p *Pipeline) CollectAttendance(ctx context.Context, members []models.Member) []models.MemberAttendance {
	results := make([]models.MemberAttendance, len(members))
	for i, m := range members {
		results[i].Member = m
	}

	workers := p.cfg.Parallelism
	if workers <= 0 {
		workers = 1
	}
	if workers > len(members) {
		workers = len(members)
	}

	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		done int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.collectMember(ctx, members[i])
				if !results[i].Completed {
					continue
				}
				n := atomic.AddInt64(&done, 1)
				slog.Info("member collected",
					slog.String("progress", fmt.Sprintf("%d/%d", n, len(members))),
					slog.String("id", members[i].ID),
					slog.String("name", members[i].Name),
					slog.Int("records", len(results[i].Records)),
					slog.Bool("degraded", results[i].Degraded),
				)
			}
		}()
	}

feed:
	for i := range members {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

// collectMember pages through one member's attendance until an empty page.
// A fetch failure keeps the records gathered so far and marks the member
// degraded; cancellation leaves it incomplete.
func (p *Pipeline) collectMember(ctx context.Context, m models.Member) models.MemberAttendance {
	entry := models.MemberAttendance{Member: m}

	for page := 1; page <= p.cfg.MaxMemberPages; page++ {
		if ctx.Err() != nil {
			return entry
		}

		markup, err := p.fetcher.Fetch(ctx, p.memberURL(m.ID, page))
		if err != nil {
			if ctx.Err() != nil {
				return entry
			}
			entry.Degraded = true
			slog.Warn("member attendance page unavailable",
				slog.String("id", m.ID),
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}

		parsed := parser.ParseMemberAttendance(markup)
		p.addSkipped("member", parsed.Skipped)
		p.metrics.AddParsed("member", len(parsed.Records), parsed.Skipped)
		if len(parsed.Records) == 0 {
			break
		}
		entry.Records = append(entry.Records, parsed.Records...)
	}

	entry.Completed = true
	if entry.Degraded {
		p.metrics.IncMember("degraded")
	} else {
		p.metrics.IncMember("ok")
	}
	return entry
}

// HouseAttendance fetches and parses one page of the roster-wide view.
func (p *Pipeline) HouseAttendance(ctx context.Context, page int) ([]models.HouseRecord, error) {
	if page <= 0 {
		return nil, fmt.Errorf("page must be positive")
	}

	markup, err := p.fetcher.Fetch(ctx, p.houseURL(page))
	if err != nil {
		return nil, fmt.Errorf("fetch house attendance page %d: %w", page, err)
	}

	parsed := parser.ParseHouseAttendance(markup)
	p.addSkipped("house", parsed.Skipped)
	p.metrics.AddParsed("house", len(parsed.Records), parsed.Skipped)
	return parsed.Records, nil
}

// Entries returns the completed member entries of the last Run.
func (p *Pipeline) Entries() []models.MemberAttendance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries
}

// SkippedFragments returns skipped-fragment counts per parser.
func (p *Pipeline) SkippedFragments() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]int, len(p.skipped))
	for k, v := range p.skipped {
		out[k] = v
	}
	return out
}

func (p *Pipeline) addSkipped(parserName string, n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.skipped[parserName] += n
	p.mu.Unlock()
}

func (p *Pipeline) finish(result *models.RunResult, completed []models.MemberAttendance) {
	if filler, ok := p.fetcher.(resultFiller); ok {
		filler.Fill(result)
	}
	result.MemberCount = len(completed)
	result.SkippedFragments = p.SkippedFragments()
	for _, e := range completed {
		if e.Degraded {
			result.DegradedMembers = append(result.DegradedMembers, e.Member.ID)
		}
	}
	result.EndTime = p.now()
}

func (p *Pipeline) snapshot(completed []models.MemberAttendance, partial bool) *models.Snapshot {
	summaries := stats.SummarizeAll(completed)
	degraded := 0
	for i := range summaries {
		id := summaries[i].ID
		summaries[i].PhotoURL = fmt.Sprintf("%s%s/%s.jpg", p.base(), p.cfg.PhotoPath, id)
		summaries[i].ProfileURL = fmt.Sprintf("%s%s/%s", p.base(), p.cfg.ProfilePath, id)
		summaries[i].AttendanceURL = fmt.Sprintf("%s%s/%s?legislature=%s", p.base(), p.cfg.AttendancePath, id, p.cfg.LegislatureID)
		if summaries[i].Degraded {
			degraded++
		}
	}

	return &models.Snapshot{
		Metadata: models.Metadata{
			ScrapedAt:       p.now().UTC(),
			Legislature:     p.cfg.LegislatureName,
			LegislatureID:   p.cfg.LegislatureID,
			TotalMPs:        len(completed),
			Source:          p.base(),
			ScraperVersion:  Version,
			RunID:           uuid.NewString(),
			Partial:         partial,
			DegradedMembers: degraded,
		},
		Statistics: stats.Aggregate(completed, p.cfg.TopN),
		Members:    summaries,
	}
}

func (p *Pipeline) base() string {
	return strings.TrimRight(p.cfg.BaseURL, "/")
}

func (p *Pipeline) directoryURL(page int) string {
	return fmt.Sprintf("%s%s?itemCount=%d&page=%d", p.base(), p.cfg.DirectoryPath, p.cfg.DirectoryPageSize, page)
}

func (p *Pipeline) houseURL(page int) string {
	return fmt.Sprintf("%s%s?legislature=%s&page=%d", p.base(), p.cfg.AttendancePath, p.cfg.LegislatureID, page)
}

func (p *Pipeline) memberURL(id string, page int) string {
	return fmt.Sprintf("%s%s/%s?legislature=%s&page=%d", p.base(), p.cfg.AttendancePath, id, p.cfg.LegislatureID, page)
}
