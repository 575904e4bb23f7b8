package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	xbrowser "github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/config"
	"github.com/ibeckermayer/xengage/internal/engagement"
	"github.com/ibeckermayer/xengage/internal/report"
	"github.com/ibeckermayer/xengage/internal/scraper"
	"github.com/ibeckermayer/xengage/internal/store"
	"github.com/ibeckermayer/xengage/internal/types"
)

// pipeline runs the steps of one mode over an open, logged-in page
type pipeline struct {
	app  *App
	cfg  *config.Config
	page xbrowser.Page
	res  *Result
	log  zerolog.Logger
}

func (p *pipeline) run(ctx context.Context) error {
	feed := scraper.NewFeedCollector(p.collectorOptions(), p.app.deps.Log)

	switch p.res.Mode {
	case config.ModeFirstDegree:
		col, err := p.commenters(ctx, feed)
		if err != nil {
			return fmt.Errorf("failed to collect seed post commenters: %w", err)
		}
		p.res.Table = report.CommentersTable(col.Items)
		return nil

	case config.ModePairwise:
		subjects := p.subjects(ctx, feed)
		targets := p.cfg.Run.TargetIdentities()
		if len(targets) == 0 {
			targets = subjects
		}
		checker := scraper.NewInteractionChecker(p.page, p.cfg.Scraping.PairwiseTimeout(), p.app.deps.Log)
		return p.build(ctx, subjects, targets, engagement.MembershipFunc(checker.HasInteracted), true)

	default:
		subjects := p.subjects(ctx, feed)
		targets := p.cfg.Run.TargetIdentities()
		m := engagement.SetMembership(p.crossAccount(ctx, feed, targets))
		for subject, seen := range m.CaseMismatches(subjects) {
			p.log.Warn().
				Str("subject", string(subject)).
				Str("collected", string(seen)).
				Msg("subject matches a collected handle only when ignoring case; handles are compared exactly")
		}
		return p.build(ctx, subjects, targets, m, false)
	}
}

func (p *pipeline) collectorOptions() scraper.CollectorOptions {
	s := p.cfg.Scraping
	return scraper.CollectorOptions{
		ScrollFraction: s.ScrollFraction,
		Pause:          s.ScrollPause(),
		ConfirmPause:   s.ConfirmPause(),
		MaxScrolls:     s.MaxScrolls,
	}
}

// subjects returns the configured subjects, or the seed post commenters. A
// seed post that cannot be collected yields no subjects.
func (p *pipeline) subjects(ctx context.Context, feed *scraper.FeedCollector) []types.Identity {
	if ids := p.cfg.Run.SubjectIdentities(); len(ids) > 0 {
		p.log.Info().Int("subjects", len(ids)).Msg("using configured subjects")
		p.res.Subjects = ids
		return ids
	}

	col, err := p.commenters(ctx, feed)
	if err != nil {
		p.log.Error().Err(err).Str("url", p.cfg.Run.SeedPostURL).Msg("failed to collect seed post commenters")
		return nil
	}
	p.res.Subjects = col.Identities()
	return p.res.Subjects
}

func (p *pipeline) commenters(ctx context.Context, feed *scraper.FeedCollector) (*scraper.Collection, error) {
	url := p.cfg.Run.SeedPostURL
	p.log.Info().Str("url", url).Msg("collecting seed post commenters")

	col, err := feed.CollectThread(ctx, p.page, url, p.cfg.Scraping.WaitTimeout())
	if err != nil {
		return nil, err
	}
	p.log.Info().
		Int("commenters", len(col.Items)).
		Int("scrolls", col.Scrolls).
		Bool("exhausted", col.Exhausted).
		Msg("seed post collected")

	p.res.Commenters = col.Items
	p.saveStep(store.StepCommenters, col)
	if s := p.app.deps.Store; s != nil {
		if err := s.SaveCollection(p.res.RunID, col.Items); err != nil {
			p.log.Warn().Err(err).Msg("failed to store commenters")
		}
	}
	return col, nil
}

func (p *pipeline) crossAccount(ctx context.Context, feed *scraper.FeedCollector, targets []types.Identity) map[types.Identity]types.IdentitySet {
	wait := p.cfg.Scraping.WaitTimeout()
	resolver := scraper.NewPostResolver(wait, p.app.deps.Log)
	results := scraper.NewCrossAccountCollector(p.page, resolver, feed, wait, p.app.deps.Log).Collect(ctx, targets)

	p.res.Targets = results
	p.saveStep(store.StepTargets, results)
	if s := p.app.deps.Store; s != nil {
		for _, r := range results {
			rec := store.TargetPostRecord{Target: string(r.Target), Error: r.Error}
			if r.Post != nil {
				rec.PostID = r.Post.ID
				rec.URL = r.Post.URL
				rec.Pinned = r.Post.Pinned
			}
			if err := s.SaveTargetPost(p.res.RunID, rec); err != nil {
				p.log.Warn().Err(err).Str("target", rec.Target).Msg("failed to store target post")
			}
			if r.Collection != nil {
				if err := s.SaveCollection(p.res.RunID, r.Collection.Items); err != nil {
					p.log.Warn().Err(err).Str("target", rec.Target).Msg("failed to store repliers")
				}
			}
		}
	}
	return scraper.MembershipSets(results)
}

// build fills the matrix. live marks a Membership that hits the network per
// pair: self pairs are skipped and every pair is reported.
func (p *pipeline) build(ctx context.Context, subjects, targets []types.Identity, m engagement.Membership, live bool) error {
	b := engagement.NewBuilder(p.cfg.Run.Ranked, p.app.deps.Log)
	b.SkipSelf = live
	b.Progress = logProgress(p.log, live)

	p.log.Info().Int("subjects", len(subjects)).Int("targets", len(targets)).Msg("building engagement matrix")
	matrix := b.Build(ctx, subjects, targets, m)
	if err := ctx.Err(); err != nil {
		return err
	}

	p.res.Matrix = matrix
	p.res.Table = report.MatrixTable(matrix)
	p.saveStep(store.StepMatrix, p.res.Table)
	if s := p.app.deps.Store; s != nil {
		if err := s.SaveMatrix(p.res.RunID, matrix); err != nil {
			p.log.Warn().Err(err).Msg("failed to store matrix")
		}
	}
	return nil
}

// logProgress reports pair checks at info level. In-memory lookups are
// reported about every tenth of the way and on the last pair.
func logProgress(log zerolog.Logger, everyPair bool) func(done, total int) {
	return func(done, total int) {
		step := 1
		if !everyPair {
			step = max(1, total/10)
		}
		if done%step != 0 && done != total {
			return
		}
		log.Info().Int("done", done).Int("total", total).Msgf("[%d/%d] pairs checked", done, total)
	}
}

func (p *pipeline) saveStep(step store.StepName, data any) {
	c := p.app.deps.Steps
	if c == nil {
		return
	}
	path, err := store.SaveStepOutput(c, step, data)
	if err != nil {
		p.log.Warn().Err(err).Str("step", string(step)).Msg("failed to cache step output")
		return
	}
	p.log.Debug().Str("step", string(step)).Str("path", path).Msg("step output cached")
}
