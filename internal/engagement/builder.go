package engagement

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xengage/internal/types"
)

// Membership decides whether subject engaged with target
type Membership interface {
	Engaged(ctx context.Context, subject, target types.Identity) bool
}

// SetMembership answers from pre-collected replier sets keyed by target
type SetMembership map[types.Identity]types.IdentitySet

// Engaged reports whether subject is in target's replier set
func (m SetMembership) Engaged(_ context.Context, subject, target types.Identity) bool {
	return m[target].Has(subject)
}

// CaseMismatches maps each subject found in no set to a collected handle that
// differs from it only in letter case. Such subjects read as FALSE everywhere.
func (m SetMembership) CaseMismatches(subjects []types.Identity) map[types.Identity]types.Identity {
	folded := make(map[string]types.Identity)
	present := make(types.IdentitySet)
	for _, set := range m {
		for id := range set {
			present.Add(id)
			if _, ok := folded[strings.ToLower(string(id))]; !ok {
				folded[strings.ToLower(string(id))] = id
			}
		}
	}

	out := make(map[types.Identity]types.Identity)
	for _, s := range subjects {
		if present.Has(s) {
			continue
		}
		if id, ok := folded[strings.ToLower(string(s))]; ok {
			out[s] = id
		}
	}
	return out
}

// MembershipFunc adapts a live per-pair check
type MembershipFunc func(ctx context.Context, subject, target types.Identity) bool

// Engaged calls f
func (f MembershipFunc) Engaged(ctx context.Context, subject, target types.Identity) bool {
	return f(ctx, subject, target)
}

// Builder assembles a Matrix
type Builder struct {
	// Ranked sorts rows by False_count ascending, keeping input order on ties
	Ranked bool
	// SkipSelf leaves subject == target cells unqueried and empty, as in the
	// all-pairs pairwise mode where asking an account about itself is moot
	SkipSelf bool
	// Progress, if set, is called after every queried pair
	Progress func(done, total int)

	log zerolog.Logger
}

// NewBuilder creates a new matrix builder
func NewBuilder(ranked bool, log zerolog.Logger) *Builder {
	return &Builder{
		Ranked: ranked,
		log:    log.With().Str("component", "matrix").Logger(),
	}
}

// Build queries m for every subject/target pair. Rows follow subject order
// (or False_count order when ranked); columns follow target order.
// Duplicate subjects or targets keep their first position.
func (b *Builder) Build(ctx context.Context, subjects, targets []types.Identity, m Membership) *Matrix {
	subjects = b.unique("subject", subjects)
	targets = b.unique("target", targets)

	total := 0
	for _, s := range subjects {
		for _, t := range targets {
			if !b.SkipSelf || s != t {
				total++
			}
		}
	}

	done := 0
	rows := make([]Row, 0, len(subjects))
	for _, s := range subjects {
		cells := make([]Cell, 0, len(targets))
		for _, t := range targets {
			if b.SkipSelf && s == t {
				cells = append(cells, Cell{Target: t, Self: true})
				continue
			}

			engaged := m.Engaged(ctx, s, t)
			cells = append(cells, Cell{Target: t, Engaged: engaged})

			done++
			b.log.Debug().Str("subject", string(s)).Str("target", string(t)).Bool("engaged", engaged).Msg("pair")
			if b.Progress != nil {
				b.Progress(done, total)
			}
		}
		rows = append(rows, NewRow(s, cells))
	}

	if b.Ranked {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].falseCount < rows[j].falseCount
		})
	}

	return &Matrix{targets: targets, rows: rows}
}

func (b *Builder) unique(kind string, ids []types.Identity) []types.Identity {
	seen := make(types.IdentitySet, len(ids))
	out := make([]types.Identity, 0, len(ids))
	for _, id := range ids {
		if !seen.Add(id) {
			b.log.Warn().Str(kind, string(id)).Msg("duplicate " + kind + " ignored")
			continue
		}
		out = append(out, id)
	}
	return out
}
