package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/Reality2byte/nanoc/internal/checksums"
	"github.com/Reality2byte/nanoc/internal/content"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/outdatedness"
	"github.com/Reality2byte/nanoc/internal/site"
)

// Input is a site ready to compile: reps are attached and the rules have
// produced their action sequences.
type Input struct {
	Site *site.Site
	// ActionSequences holds the sequence of every rep and the filter
	// sequence of every layout.
	ActionSequences map[site.Ref]*site.ActionSequence
	// Focus limits compilation to outdated reps whose item identifier
	// matches one of the patterns. Nil compiles every outdated rep.
	Focus []site.Pattern
}

// RunState is everything one compilation run computes. It is created once
// per run and never reused.
type RunState struct {
	ID        string
	StartedAt time.Time

	in  Input
	sum ir.Checksummer

	checksums     *checksums.Collection
	checksumStore *checksums.Store
	seqStore      *checksums.ActionSequenceStore
	records       []checksums.Record
	seqSums       map[site.Ref]string

	deps     *deps.Store
	outdated *outdatedness.Store
	result   *outdatedness.Result
	cache    *content.Cache
	repo     *content.Repo

	// forgotten holds the items whose old dependencies have been dropped.
	forgotten map[string]bool
	selector  *Selector
}

// cacheKey digests everything the compiled content of rep was computed
// from: its actions, its item, and every object its item read.
func (rs *RunState) cacheKey(rep site.Ref) (string, error) {
	seqSum, ok := rs.seqSums[rep]
	if !ok {
		return "", site.Inconsistency("no action sequence checksum for %s", rep)
	}
	item, err := rs.sourceDigest(rep.Fold())
	if err != nil {
		return "", err
	}

	var sources []any
	for _, d := range rs.deps.DependenciesCausingOutdatednessOf(rep.Fold()) {
		src, err := rs.sourceDigest(d.From)
		if err != nil {
			return "", err
		}
		sources = append(sources, src)
	}

	return rs.sum.Structured(ir.DomainCacheKey, map[string]any{
		"rep":     rep.String(),
		"actions": seqSum,
		"item":    item,
		"sources": sources,
	})
}

func (rs *RunState) sourceDigest(ref site.Ref) (map[string]any, error) {
	out := map[string]any{"ref": ref.String()}
	switch ref.Kind {
	case site.KindNone:
	case site.KindItemCollection:
		out["members"] = rs.in.Site.Items.Identifiers()
	case site.KindLayoutCollection:
		out["members"] = rs.in.Site.Layouts.Identifiers()
	case site.KindItem, site.KindLayout, site.KindConfiguration:
		rec, err := rs.checksums.RecordFor(ref)
		if err != nil {
			return nil, fmt.Errorf("checksum %s: %w", ref, err)
		}
		attrs := make(map[string]any, len(rec.Attributes))
		for k, v := range rec.Attributes {
			attrs[k] = v
		}
		out["content"] = rec.Content
		out["attributes"] = attrs
	default:
		return nil, site.Inconsistency("unexpected dependency source %s", ref)
	}
	return out, nil
}

// outdatedReps returns the reps of the site that are in the outdatedness
// store, in identifier order.
func (rs *RunState) outdatedReps() []*site.ItemRep {
	var reps []*site.ItemRep
	for _, rep := range rs.in.Site.Reps.All() {
		if rs.outdated.Include(rep.Ref()) {
			reps = append(reps, rep)
		}
	}
	return reps
}

func compareRefs(a, b site.Ref) int {
	return strings.Compare(a.String(), b.String())
}
