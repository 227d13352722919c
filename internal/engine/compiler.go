package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Reality2byte/nanoc/internal/checksums"
	"github.com/Reality2byte/nanoc/internal/content"
	"github.com/Reality2byte/nanoc/internal/deps"
	"github.com/Reality2byte/nanoc/internal/filters"
	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/outdatedness"
	"github.com/Reality2byte/nanoc/internal/site"
	"github.com/Reality2byte/nanoc/internal/store"
)

// Stage names, in pipeline order.
const (
	StageLoadStores            = "load_stores"
	StageComputeChecksums      = "compute_checksums"
	StageDetermineOutdatedness = "determine_outdatedness"
	StageForgetDependencies    = "forget_outdated_dependencies"
	StageCompileReps           = "compile_reps"
	StageStoreState            = "store_state"
)

// Compiler runs the incremental compilation pipeline against one store.
type Compiler struct {
	store          *store.Store
	writer         RepWriter
	filters        *filters.Registry
	events         EventSink
	logger         *slog.Logger
	algorithm      ir.Algorithm
	runIDs         RunIDGenerator
	clock          *Clock
	now            func() time.Time
	maxSuspensions int
	memoryEntries  int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithFilters sets the filter registry.
func WithFilters(r *filters.Registry) Option {
	return func(c *Compiler) { c.filters = r }
}

// WithEventSink sets the sink receiving observation events.
func WithEventSink(s EventSink) Option {
	return func(c *Compiler) { c.events = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithChecksumAlgorithm selects the digest function.
func WithChecksumAlgorithm(a ir.Algorithm) Option {
	return func(c *Compiler) { c.algorithm = a }
}

// WithRunIDGenerator sets the run ID source.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Compiler) { c.runIDs = g }
}

// WithClock sets the logical clock stamping events.
func WithClock(clock *Clock) Option {
	return func(c *Compiler) { c.clock = clock }
}

// WithNow sets the wall clock used for event times and run records.
func WithNow(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// WithMaxSuspensions sets the suspension quota. Zero or less derives the
// quota from the number of reps.
func WithMaxSuspensions(n int) Option {
	return func(c *Compiler) { c.maxSuspensions = n }
}

// WithCacheMemoryEntries bounds the decoded cache entries kept in memory.
func WithCacheMemoryEntries(n int) Option {
	return func(c *Compiler) { c.memoryEntries = n }
}

// New creates a compiler persisting to st and writing through w.
func New(st *store.Store, w RepWriter, opts ...Option) *Compiler {
	c := &Compiler{
		store:     st,
		writer:    w,
		filters:   filters.NewRegistry(),
		events:    nopSink{},
		logger:    slog.Default(),
		algorithm: ir.SHA256,
		runIDs:    UUIDv7Generator{},
		clock:     NewClock(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report summarizes a run.
type Report struct {
	RunID string
	// Outdated lists the reps outdated at the start of the run.
	Outdated []site.Ref
	// Compiled lists the reps that completed, from cache or not.
	Compiled []site.Ref
	// Failed lists the reps whose failure was scoped to them.
	Failed []site.Ref
	// Pending lists the reps still outdated after the run.
	Pending []site.Ref
}

// Compile runs the whole pipeline for in. The stores are persisted before
// Compile returns, whether or not compilation succeeded, once outdatedness
// has been determined.
func (c *Compiler) Compile(ctx context.Context, in Input) (report *Report, err error) {
	rs, err := c.prepare(ctx, in, c.runIDs.Generate())
	if err != nil {
		return nil, err
	}

	report = &Report{RunID: rs.ID}
	for _, rep := range rs.outdatedReps() {
		report.Outdated = append(report.Outdated, rep.Ref())
	}

	defer func() {
		if perr := c.persist(ctx, rs, err); perr != nil {
			err = errors.Join(err, perr)
		}
		report.Pending = rs.outdated.All()
		if rs.selector != nil {
			report.Failed = rs.selector.Failed()
		}
	}()

	c.forgetOutdatedDependencies(rs)

	err = c.stage(rs, StageCompileReps, func() error { return c.compileReps(ctx, rs) })
	for _, rep := range rs.in.Site.Reps.All() {
		if rep.Compiled() {
			report.Compiled = append(report.Compiled, rep.Ref())
		}
	}
	return report, err
}

// prepare runs every stage up to and including outdatedness.
func (c *Compiler) prepare(ctx context.Context, in Input, runID string) (*RunState, error) {
	if in.Site == nil {
		return nil, fmt.Errorf("compile: no site")
	}
	rs := &RunState{
		ID:        runID,
		StartedAt: c.now(),
		in:        in,
		sum:       ir.NewChecksummer(c.algorithm),
		forgotten: map[string]bool{},
		repo:      content.NewRepo(),
	}
	c.logger.Debug("preparing run", "run", rs.ID, "items", in.Site.Items.Len(), "reps", in.Site.Reps.Len())

	var state *store.State
	err := c.stage(rs, StageLoadStores, func() error {
		var err error
		state, err = c.store.Load(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}

	rs.checksumStore = checksums.NewStore(state.Checksums)
	rs.seqStore = checksums.NewActionSequenceStore(state.ActionSequences)
	rs.deps = deps.Load(in.Site, state.Dependencies)
	rs.outdated = outdatedness.NewStore(state.Outdated)
	rs.cache = content.NewCache(state.CacheIndex, c.store, rs.cacheKey,
		content.WithLogger(c.logger), content.WithMemoryEntries(c.memoryEntries))

	if err := c.stage(rs, StageComputeChecksums, func() error { return c.computeChecksums(rs) }); err != nil {
		return nil, fmt.Errorf("compute checksums: %w", err)
	}
	if err := c.stage(rs, StageDetermineOutdatedness, func() error { return c.determineOutdatedness(rs) }); err != nil {
		return nil, fmt.Errorf("determine outdatedness: %w", err)
	}
	return rs, nil
}

func (c *Compiler) computeChecksums(rs *RunState) error {
	rs.checksums = checksums.NewCollection(rs.sum, rs.in.Site)
	records, err := rs.checksums.Records()
	if err != nil {
		return err
	}
	rs.records = records

	rs.seqSums = make(map[site.Ref]string, len(rs.in.ActionSequences))
	for ref, seq := range rs.in.ActionSequences {
		sum, err := seq.Checksum(rs.sum)
		if err != nil {
			return fmt.Errorf("action sequence of %s: %w", ref, err)
		}
		rs.seqSums[ref] = sum
	}
	c.logger.Info("checksums calculated", "objects", len(records), "sequences", len(rs.seqSums))
	return nil
}

// determineOutdatedness marks every rep of an outdated item outdated and
// drops stored reps that no longer exist.
func (c *Compiler) determineOutdatedness(rs *RunState) error {
	result, err := outdatedness.NewChecker(outdatedness.Inputs{
		Site:                rs.in.Site,
		Checksums:           rs.checksums,
		ChecksumStore:       rs.checksumStore,
		Dependencies:        rs.deps,
		ActionSequenceStore: rs.seqStore,
		ActionSequences:     rs.in.ActionSequences,
	}).Run()
	if err != nil {
		return err
	}
	rs.result = result

	reps := rs.in.Site.Reps
	rs.outdated.Retain(func(ref site.Ref) bool {
		_, ok := reps.Get(ref)
		return ok
	})

	outdatedItems := map[string]bool{}
	for _, rep := range reps.All() {
		ref := rep.Ref()
		if rs.outdated.Include(ref) || result.IsOutdated(ref) {
			outdatedItems[rep.Item.Identifier] = true
			c.logger.Debug("rep outdated", "rep", ref, "reasons", outdatedness.ReasonNames(result.ReasonsFor(ref)))
		}
	}
	for _, rep := range reps.All() {
		if outdatedItems[rep.Item.Identifier] {
			rs.outdated.Add(rep.Ref())
		}
	}

	c.logger.Info("outdatedness determined", "outdated_reps", rs.outdated.Len(), "reps", reps.Len())
	return nil
}

func (c *Compiler) forgetOutdatedDependencies(rs *RunState) {
	_ = c.stage(rs, StageForgetDependencies, func() error {
		for _, rep := range rs.outdatedReps() {
			item := rep.Item.Identifier
			if rs.forgotten[item] {
				continue
			}
			rs.deps.ForgetDependenciesFor(site.ItemRef(item))
			rs.forgotten[item] = true
		}
		return nil
	})
}

func (c *Compiler) compileReps(ctx context.Context, rs *RunState) error {
	notifier := c.notifier()
	outdated := map[site.Ref]bool{}
	var todo []*site.ItemRep
	for _, rep := range rs.outdatedReps() {
		outdated[rep.Ref()] = true
		if rs.in.Focus == nil || site.MatchAny(rs.in.Focus, rep.Item.Identifier) {
			todo = append(todo, rep)
		}
	}

	stack := phaseStack{
		executor:  NewExecutor(rs.in.Site, rs.repo, rs.in.ActionSequences, c.filters, notifier),
		deps:      rs.deps,
		forgotten: rs.forgotten,
		cache:     rs.cache,
		repo:      rs.repo,
		outdated:  rs.outdated,
		writer:    c.writer,
		events:    notifier,
	}.build()

	limit := c.maxSuspensions
	if limit <= 0 {
		limit = DefaultQuota(rs.in.Site.Reps.Len())
	}
	rs.selector = NewSelector(todo, rs.in.Site.Reps, NewQuotaEnforcer(limit), rs.in.Focus != nil)

	err := rs.selector.Each(func(rep *site.ItemRep) Result {
		c.logger.Debug("compiling rep", "rep", rep.Ref(), "outdated", outdated[rep.Ref()])
		return stack.Call(ctx, rep, outdated[rep.Ref()])
	})
	if err != nil {
		return err
	}

	if rs.in.Focus == nil {
		var missing []site.Ref
		for _, rep := range rs.in.Site.Reps.All() {
			if !rep.Compiled() && !rs.cache.Has(rep.Ref()) {
				missing = append(missing, rep.Ref())
			}
		}
		if len(missing) > 0 {
			return NewIncompleteError(missing)
		}
	}
	return nil
}

// persist writes every store in one transaction. It runs even when the
// context has been cancelled, so progress made before an interruption is
// kept.
func (c *Compiler) persist(ctx context.Context, rs *RunState, runErr error) error {
	return c.stage(rs, StageStoreState, func() error {
		rs.outdated.Retain(func(ref site.Ref) bool {
			_, ok := rs.in.Site.Reps.Get(ref)
			return ok
		})
		rs.cache.Prune(rs.in.Site.Items.Identifiers())
		changes, err := rs.cache.Changes()
		if err != nil {
			return fmt.Errorf("store compiled content cache: %w", err)
		}

		graph := rs.deps.Snapshot()
		run := store.Run{
			ID:                rs.ID,
			StartedAt:         rs.StartedAt,
			EndedAt:           c.now(),
			Status:            store.RunSucceeded,
			CompilerVersion:   ir.CompilerVersion,
			ChecksumAlgorithm: string(rs.sum.Algorithm),
		}
		if runErr != nil {
			run.Status = store.RunFailed
			run.Error = runErr.Error()
		}

		err = c.store.Save(context.WithoutCancel(ctx), run, &store.State{
			Checksums:       rs.records,
			ActionSequences: rs.seqSums,
			Dependencies:    &graph,
			Outdated:        rs.outdated.All(),
		}, changes)
		if err != nil {
			return fmt.Errorf("store state: %w", err)
		}
		c.logger.Info("stores persisted", "run", rs.ID, "status", run.Status,
			"outdated_reps", rs.outdated.Len(), "cache_writes", len(changes.Put))
		return nil
	})
}

func (c *Compiler) notifier() *notifier {
	return &notifier{sink: c.events, clock: c.clock, now: c.now}
}

// stage runs fn between stage_started and stage_ended events.
func (c *Compiler) stage(rs *RunState, name string, fn func() error) error {
	n := c.notifier()
	n.notify(Event{Type: EventStageStarted, Stage: name})
	err := fn()
	n.notify(Event{Type: EventStageEnded, Stage: name})
	return err
}
