// Package simulation runs what-if scenarios against cloned schedules and
// manages the resulting simulation records.
package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/portops/portsim/internal/cache"
	"github.com/portops/portsim/internal/conflict"
	"github.com/portops/portsim/internal/db"
	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/events"
	"github.com/portops/portsim/internal/observability"
	"github.com/portops/portsim/internal/recommend"
	"github.com/portops/portsim/internal/repository"
	"github.com/portops/portsim/internal/scenario"
)

const (
	DefaultCacheTTL      = time.Hour
	DefaultLatencyBudget = 5 * time.Second
	cacheKeyPrefix       = "simulation:"
)

// CacheKey is the cache key a simulation result is stored under.
func CacheKey(simulationID string) string {
	return cacheKeyPrefix + simulationID
}

// Stores groups the repositories the orchestrator reads and writes.
type Stores = repository.Set

// StoreFactory builds Stores over a connection or an open transaction.
type StoreFactory func(q db.DBTX) Stores

// SQLiteStores is the StoreFactory for the SQLite repositories.
func SQLiteStores(q db.DBTX) Stores {
	return repository.NewSQLiteSet(q)
}

type Config struct {
	CacheTTL      time.Duration
	LatencyBudget time.Duration
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithObserver(obs UseCaseObserver) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func WithMetrics(c *observability.SimulationCollector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

func WithEvents(s events.Sink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.events = s
		}
	}
}

func WithCache(c cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithClock replaces time.Now. Tests use it to pin timestamps and elapsed
// time.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// Orchestrator coordinates clone, scenario, recalculation, scan,
// recommendation, persistence, and caching for simulation runs.
type Orchestrator struct {
	stores    Stores
	txStores  StoreFactory
	uow       db.UnitOfWork
	cfg       Config
	applier   *scenario.Applier
	scanner   *conflict.Scanner
	generator *recommend.Generator

	cache    cache.Cache
	events   events.Sink
	metrics  *observability.SimulationCollector
	observer UseCaseObserver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewOrchestrator wires an orchestrator. stores serves reads outside
// transactions; txStores builds the repositories used inside uow.
func NewOrchestrator(stores Stores, txStores StoreFactory, uow db.UnitOfWork, cfg Config, opts ...Option) *Orchestrator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.LatencyBudget <= 0 {
		cfg.LatencyBudget = DefaultLatencyBudget
	}
	o := &Orchestrator{
		stores:   stores,
		txStores: txStores,
		uow:      uow,
		cfg:      cfg,
		events:   events.Noop{},
		observer: NoopUseCaseObserver{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.applier = scenario.NewApplier(o.logger)
	o.scanner = conflict.NewScanner(o.logger)
	o.generator = recommend.NewGenerator(storeDirectory{assets: stores.Assets, tasks: stores.Tasks}, o.logger)
	return o
}

// storeDirectory adapts the repositories to recommend.ResourceDirectory.
type storeDirectory struct {
	assets repository.AssetRepo
	tasks  repository.TaskRepo
}

func (d storeDirectory) ListByType(ctx context.Context, t domain.AssetType) ([]*domain.Asset, error) {
	return d.assets.ListByType(ctx, t)
}

func (d storeDirectory) ListLiveByResource(ctx context.Context, resourceID string) ([]*domain.Task, error) {
	return d.tasks.ListLiveByResource(ctx, resourceID)
}

// run carries the working state of one RunSimulation call.
type run struct {
	desc    *scenario.Descriptor
	started time.Time
	sm      *stateMachine

	base      *domain.Schedule
	baseTasks []*domain.Task
	assets    []*domain.Asset
	visits    map[string]*domain.ShipVisit

	sim     *domain.Schedule
	tasks   []*domain.Task
	outcome scenario.Outcome
	result  *Result
}

// RunSimulation clones the base schedule, applies d to the clone, and
// returns the analyzed result. The base schedule is never modified.
func (o *Orchestrator) RunSimulation(ctx context.Context, d *scenario.Descriptor) (res *Result, err error) {
	const op = "run simulation"
	fields := map[string]any{}
	done := o.observe(ctx, "simulation.run", fields)

	ctx, span := observability.StartSpan(ctx, "simulation.run")
	defer span.End()

	r := &run{desc: d, started: o.now(), sm: newStateMachine(o.logger, span)}
	if d != nil {
		fields["base_schedule_id"] = d.BaseScheduleID
		fields["scenario_type"] = string(d.Type)
		span.SetAttributes(
			attribute.String("simulation.base_schedule_id", d.BaseScheduleID),
			attribute.String("simulation.scenario_type", string(d.Type)),
		)
	}

	defer func() {
		if err != nil {
			from := r.sm.fail(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.publishFailed(ctx, r, from, err)
			o.metrics.ObserveRun(scenarioType(d), observability.OutcomeFailed, o.now().Sub(r.started))
		}
		done(err)
	}()

	o.events.Publish(ctx, o.event(events.SimulationStarted, r))
	if err := d.Validate(); err != nil {
		return nil, classify(op, err)
	}

	if err := o.load(ctx, r); err != nil {
		return nil, classify(op, err)
	}
	if err := o.clone(ctx, r); err != nil {
		return nil, classify(op, err)
	}
	fields["simulation_id"] = r.sim.ID
	span.SetAttributes(attribute.String("simulation.id", r.sim.ID))

	if err := o.analyze(ctx, r); err != nil {
		o.discardClone(ctx, r.sim.ID)
		return nil, classify(op, err)
	}
	if err := o.persist(ctx, r); err != nil {
		o.discardClone(ctx, r.sim.ID)
		return nil, classify(op, err)
	}
	if err := r.sm.advance(ctx, StateCompleted); err != nil {
		return nil, classify(op, err)
	}
	o.finish(ctx, r)
	fields["conflicts"] = len(r.result.Conflicts)
	fields["elapsed_ms"] = r.result.Metrics.ElapsedMs
	return r.result, nil
}

func (o *Orchestrator) load(ctx context.Context, r *run) error {
	base, err := o.stores.Schedules.GetByID(ctx, r.desc.BaseScheduleID)
	if err != nil {
		return fmt.Errorf("loading base schedule: %w", err)
	}
	tasks, err := o.stores.Tasks.ListBySchedule(ctx, base.ID)
	if err != nil {
		return fmt.Errorf("loading base tasks: %w", err)
	}
	assets, err := o.stores.Assets.List(ctx)
	if err != nil {
		return fmt.Errorf("loading assets: %w", err)
	}

	visitIDs := []string{domain.StrOrEmpty(base.ShipVisitID)}
	if r.desc.ShipDelay != nil {
		visitIDs = append(visitIDs, r.desc.ShipDelay.ShipVisitID)
	}
	visits, err := o.loadVisits(ctx, visitIDs...)
	if err != nil {
		return err
	}

	r.base, r.baseTasks, r.assets, r.visits = base, tasks, assets, visits
	return nil
}

// loadVisits returns private copies keyed by ID. Unknown IDs are skipped.
func (o *Orchestrator) loadVisits(ctx context.Context, ids ...string) (map[string]*domain.ShipVisit, error) {
	out := make(map[string]*domain.ShipVisit)
	for _, id := range ids {
		if id == "" || out[id] != nil {
			continue
		}
		v, err := o.stores.Visits.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			o.logger.DebugContext(ctx, "ship visit not found", "ship_visit_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading ship visit: %w", err)
		}
		out[id] = v
	}
	return out, nil
}

// simulatedVisits loads the visits of a stored schedule and reapplies any
// arrival shift its run recorded, since the shift only ever lived in memory.
func (o *Orchestrator) simulatedVisits(ctx context.Context, sched *domain.Schedule, changes []scenario.AppliedChange) (map[string]*domain.ShipVisit, error) {
	ids := []string{domain.StrOrEmpty(sched.ShipVisitID)}
	for _, c := range changes {
		if c.EntityType == scenario.EntityShipVisit {
			ids = append(ids, c.EntityID)
		}
	}
	visits, err := o.loadVisits(ctx, ids...)
	if err != nil {
		return nil, err
	}
	scenario.ReplayArrivals(visits, changes)
	return visits, nil
}

// clone writes the simulated schedule and its tasks in one transaction.
// Predecessor references inside the set are rewritten to the new IDs.
func (o *Orchestrator) clone(ctx context.Context, r *run) error {
	now := o.now()
	sim := r.base.Copy()
	sim.ID = o.newID()
	sim.MarkSimulation()
	sim.Notes = ""
	sim.CreatedAt = now
	sim.UpdatedAt = now

	idMap := make(map[string]string, len(r.baseTasks))
	for _, t := range r.baseTasks {
		idMap[t.ID] = o.newID()
	}
	tasks := make([]*domain.Task, 0, len(r.baseTasks))
	for _, t := range r.baseTasks {
		c := t.CloneInto(idMap[t.ID], sim.ID, now)
		for i, p := range c.Predecessors {
			if mapped, ok := idMap[p]; ok {
				c.Predecessors[i] = mapped
			}
		}
		tasks = append(tasks, c)
	}

	err := o.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		s := o.txStores(tx)
		if err := s.Schedules.Create(ctx, sim); err != nil {
			return fmt.Errorf("saving simulated schedule: %w", err)
		}
		for _, t := range tasks {
			if err := s.Tasks.Create(ctx, t); err != nil {
				return fmt.Errorf("saving simulated task %s: %w", t.SourceTaskID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cloning schedule: %w", err)
	}

	r.sim, r.tasks = sim, tasks
	return r.sm.advance(ctx, StateCloned)
}

// analyze runs the in-memory steps: scenario, bounds, scan, recommendations.
func (o *Orchestrator) analyze(ctx context.Context, r *run) error {
	ws := &scenario.Workspace{Schedule: r.sim, Tasks: r.tasks, Visits: r.visits, Now: o.now()}
	outcome, err := o.applier.Apply(ctx, r.desc, ws)
	if err != nil {
		return fmt.Errorf("applying scenario: %w", err)
	}
	r.outcome = outcome
	if err := r.sm.advance(ctx, StateScenarioApplied); err != nil {
		return err
	}

	r.sim.RecalculateBounds(r.tasks, o.now())
	if err := r.sm.advance(ctx, StateRecalculated); err != nil {
		return err
	}

	conflicts, err := o.scan(ctx, r.sim, r.tasks, r.assets, r.visits)
	if err != nil {
		return err
	}
	if err := r.sm.advance(ctx, StateScanned); err != nil {
		return err
	}

	recs := o.generator.Generate(ctx, recommend.Input{
		Conflicts:      conflicts,
		Tasks:          r.tasks,
		BaseScheduleID: r.base.ID,
	})
	if err := r.sm.advance(ctx, StateRecommended); err != nil {
		return err
	}

	r.result = &Result{
		SimulationID:    r.sim.ID,
		BaseScheduleID:  r.base.ID,
		ScenarioName:    r.desc.Name,
		ScenarioType:    string(r.desc.Type),
		Schedule:        r.sim,
		Tasks:           r.tasks,
		Conflicts:       emptyIfNil(conflicts),
		Recommendations: emptyIfNil(recs),
		AppliedChanges:  emptyIfNil(outcome.Applied),
		IgnoredChanges:  outcome.Ignored,
		CreatedAt:       r.sim.CreatedAt,
	}
	return nil
}

func (o *Orchestrator) scan(ctx context.Context, sim *domain.Schedule, tasks []*domain.Task,
	assets []*domain.Asset, visits map[string]*domain.ShipVisit) ([]domain.Conflict, error) {
	vs := make([]*domain.ShipVisit, 0, len(visits))
	for _, v := range visits {
		vs = append(vs, v)
	}
	refs := conflict.BuildRefs(assets, []*domain.Schedule{sim}, vs)
	conflicts, err := o.scanner.ScanContext(ctx, tasks, refs)
	if err != nil {
		return nil, fmt.Errorf("scanning conflicts: %w", err)
	}
	return conflicts, nil
}

// persist stores the snapshot block and the mutated tasks in one
// transaction, then computes final metrics.
func (o *Orchestrator) persist(ctx context.Context, r *run) error {
	block, err := EncodeBlock(Block{
		BaseScheduleID: r.base.ID,
		ScenarioName:   r.desc.Name,
		ScenarioType:   string(r.desc.Type),
		CreatedAt:      r.sim.CreatedAt,
		ConflictCount:  len(r.result.Conflicts),
		AppliedChanges: r.outcome.Applied,
		IgnoredChanges: r.outcome.Ignored,
	})
	if err != nil {
		return err
	}
	r.sim.MarkSimulation()
	r.sim.Notes = block

	err = o.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		s := o.txStores(tx)
		if err := s.Schedules.Update(ctx, r.sim); err != nil {
			return fmt.Errorf("saving simulation snapshot: %w", err)
		}
		for _, t := range r.tasks {
			if err := s.Tasks.Update(ctx, t); err != nil {
				return fmt.Errorf("saving simulated task %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persisting simulation: %w", err)
	}
	return r.sm.advance(ctx, StatePersisted)
}

// finish records metrics, caches the result, and publishes completion.
func (o *Orchestrator) finish(ctx context.Context, r *run) {
	elapsed := o.now().Sub(r.started)
	res := r.result
	res.Metrics = computeMetrics(r.sim, r.base, r.tasks, res.Conflicts, res.Recommendations,
		affectedTaskCount(res.AppliedChanges, r.tasks), elapsed)

	if elapsed > o.cfg.LatencyBudget {
		o.logger.WarnContext(ctx, "simulation exceeded latency budget",
			"simulation_id", res.SimulationID,
			"elapsed_ms", elapsed.Milliseconds(),
			"budget_ms", o.cfg.LatencyBudget.Milliseconds())
		o.metrics.IncBudgetOverrun()
	}
	o.metrics.ObserveRun(res.ScenarioType, observability.OutcomeCompleted, elapsed)
	o.metrics.AddConflicts(conflictCountsByType(res.Conflicts))

	o.storeCached(ctx, res)

	e := o.event(events.SimulationCompleted, r)
	e.Fields = map[string]any{
		"conflicts":       res.Metrics.ConflictCount,
		"recommendations": res.Metrics.RecommendationCount,
		"elapsed_ms":      res.Metrics.ElapsedMs,
	}
	e.Result = res
	o.events.Publish(ctx, e)
}

// discardClone removes a clone whose run failed after it was committed.
// Nothing else is undone after a failure; this only keeps half-analyzed
// clones out of the simulation list. It is best effort: a failed delete is
// logged and the run still reports its original error.
func (o *Orchestrator) discardClone(ctx context.Context, id string) {
	err := o.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		s := o.txStores(tx)
		if _, err := s.Tasks.DeleteBySchedule(ctx, id); err != nil {
			return err
		}
		return s.Schedules.Delete(ctx, id)
	})
	if err != nil {
		o.logger.WarnContext(ctx, "discarding failed simulation clone", "simulation_id", id, "error", err)
	}
}

func (o *Orchestrator) event(t events.Type, r *run) events.Event {
	e := events.Event{Type: t, At: o.now()}
	if r.desc != nil {
		e.BaseScheduleID = r.desc.BaseScheduleID
		e.ScenarioName = r.desc.Name
		e.ScenarioType = string(r.desc.Type)
	}
	if r.sim != nil {
		e.SimulationID = r.sim.ID
	}
	return e
}

func (o *Orchestrator) publishFailed(ctx context.Context, r *run, from State, err error) {
	e := o.event(events.SimulationFailed, r)
	e.Error = err.Error()
	e.Fields = map[string]any{"code": string(CodeOf(err)), "state": string(from)}
	o.events.Publish(ctx, e)
}

// GetSimulationResult returns a simulation from the cache, or rebuilds it
// from the stored record and caches it again.
func (o *Orchestrator) GetSimulationResult(ctx context.Context, id string) (res *Result, err error) {
	const op = "get simulation"
	done := o.observe(ctx, "simulation.get", map[string]any{"simulation_id": id})
	defer func() { done(err) }()

	ctx, span := observability.StartSpan(ctx, "simulation.get", attribute.String("simulation.id", id))
	defer span.End()

	if res, ok := o.cached(ctx, id); ok {
		span.AddEvent("cache_hit")
		return res, nil
	}
	sched, err := o.stores.Schedules.GetByID(ctx, id)
	if err != nil {
		return nil, classify(op, fmt.Errorf("loading simulation: %w", err))
	}
	res, err = o.rehydrate(ctx, sched)
	if err != nil {
		return nil, classify(op, err)
	}
	o.storeCached(ctx, res)
	return res, nil
}

// ListRecentSimulations returns up to limit simulations, newest first.
// Records that cannot be rebuilt are skipped with a warning.
func (o *Orchestrator) ListRecentSimulations(ctx context.Context, limit int) (out []*Result, err error) {
	const op = "list simulations"
	done := o.observe(ctx, "simulation.list", map[string]any{"limit": limit})
	defer func() { done(err) }()

	ctx, span := observability.StartSpan(ctx, "simulation.list", attribute.Int("simulation.limit", limit))
	defer span.End()

	scheds, err := o.stores.Schedules.ListSimulations(ctx, limit)
	if err != nil {
		return nil, classify(op, fmt.Errorf("listing simulations: %w", err))
	}
	out = make([]*Result, 0, len(scheds))
	for _, s := range scheds {
		if res, ok := o.cached(ctx, s.ID); ok {
			out = append(out, res)
			continue
		}
		res, err := o.rehydrate(ctx, s)
		if err != nil {
			o.logger.WarnContext(ctx, "skipping unreadable simulation", "simulation_id", s.ID, "error", err)
			continue
		}
		o.storeCached(ctx, res)
		out = append(out, res)
	}
	return out, nil
}

// rehydrate rebuilds a result from a stored simulation schedule. Conflicts
// and recommendations are recomputed against the current store.
func (o *Orchestrator) rehydrate(ctx context.Context, sched *domain.Schedule) (*Result, error) {
	block, ok := ParseBlock(sched.Notes)
	if !ok && !sched.IsSimulation() {
		return nil, fmt.Errorf("%w: schedule %s is not a simulation", ErrNotFound, sched.ID)
	}

	tasks, err := o.stores.Tasks.ListBySchedule(ctx, sched.ID)
	if err != nil {
		return nil, fmt.Errorf("loading simulated tasks: %w", err)
	}
	var base *domain.Schedule
	if block.BaseScheduleID != UnknownBaseSchedule {
		base, err = o.stores.Schedules.GetByID(ctx, block.BaseScheduleID)
		if errors.Is(err, repository.ErrNotFound) {
			base, err = nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("loading base schedule: %w", err)
		}
	}
	assets, err := o.stores.Assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}
	visits, err := o.simulatedVisits(ctx, sched, block.AppliedChanges)
	if err != nil {
		return nil, err
	}

	conflicts, err := o.scan(ctx, sched, tasks, assets, visits)
	if err != nil {
		return nil, err
	}
	recs := o.generator.Generate(ctx, recommend.Input{
		Conflicts:      conflicts,
		Tasks:          tasks,
		BaseScheduleID: block.BaseScheduleID,
	})

	createdAt := block.CreatedAt
	if createdAt.IsZero() {
		createdAt = sched.CreatedAt
	}
	res := &Result{
		SimulationID:    sched.ID,
		BaseScheduleID:  block.BaseScheduleID,
		ScenarioName:    block.ScenarioName,
		ScenarioType:    block.ScenarioType,
		Schedule:        sched,
		Tasks:           emptyIfNil(tasks),
		Conflicts:       emptyIfNil(conflicts),
		Recommendations: emptyIfNil(recs),
		AppliedChanges:  emptyIfNil(block.AppliedChanges),
		IgnoredChanges:  block.IgnoredChanges,
		CreatedAt:       createdAt,
	}
	res.Metrics = computeMetrics(sched, base, tasks, conflicts, recs,
		affectedTaskCount(block.AppliedChanges, tasks), 0)
	return res, nil
}

// ApplySimulation promotes a simulation by removing the marker from its
// label. The snapshot block stays in Notes. Applying twice is a no-op.
func (o *Orchestrator) ApplySimulation(ctx context.Context, id string) (err error) {
	const op = "apply simulation"
	done := o.observe(ctx, "simulation.apply", map[string]any{"simulation_id": id})
	defer func() { done(err) }()

	sched, err := o.stores.Schedules.GetByID(ctx, id)
	if err != nil {
		return classify(op, fmt.Errorf("loading simulation: %w", err))
	}
	if !sched.StripSimulationMarker() {
		if _, ok := ParseBlock(sched.Notes); ok {
			return nil
		}
		return invalid(op, fmt.Sprintf("schedule %s is not a simulation", id))
	}
	sched.UpdatedAt = o.now()
	if err := o.stores.Schedules.Update(ctx, sched); err != nil {
		return classify(op, fmt.Errorf("renaming simulation: %w", err))
	}
	o.purgeCached(ctx, id)
	return nil
}

// DeleteSimulation removes a simulation and its tasks. Schedules without
// the simulation marker are refused and left intact.
func (o *Orchestrator) DeleteSimulation(ctx context.Context, id string) (err error) {
	const op = "delete simulation"
	done := o.observe(ctx, "simulation.delete", map[string]any{"simulation_id": id})
	defer func() { done(err) }()

	sched, err := o.stores.Schedules.GetByID(ctx, id)
	if err != nil {
		return classify(op, fmt.Errorf("loading simulation: %w", err))
	}
	if !sched.IsSimulation() {
		return invalid(op, fmt.Sprintf("schedule %s is not a simulation", id))
	}

	err = o.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		s := o.txStores(tx)
		if _, err := s.Tasks.DeleteBySchedule(ctx, id); err != nil {
			return fmt.Errorf("deleting simulated tasks: %w", err)
		}
		if err := s.Schedules.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting simulated schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return classify(op, err)
	}
	o.purgeCached(ctx, id)
	return nil
}

// ScanSchedule detects conflicts in a stored schedule without simulating.
func (o *Orchestrator) ScanSchedule(ctx context.Context, id string) (conflicts []domain.Conflict, err error) {
	const op = "scan schedule"
	done := o.observe(ctx, "schedule.scan", map[string]any{"schedule_id": id})
	defer func() { done(err) }()

	sched, err := o.stores.Schedules.GetByID(ctx, id)
	if err != nil {
		return nil, classify(op, fmt.Errorf("loading schedule: %w", err))
	}
	tasks, err := o.stores.Tasks.ListBySchedule(ctx, id)
	if err != nil {
		return nil, classify(op, fmt.Errorf("loading tasks: %w", err))
	}
	assets, err := o.stores.Assets.List(ctx)
	if err != nil {
		return nil, classify(op, fmt.Errorf("loading assets: %w", err))
	}
	block, _ := ParseBlock(sched.Notes)
	visits, err := o.simulatedVisits(ctx, sched, block.AppliedChanges)
	if err != nil {
		return nil, classify(op, err)
	}
	conflicts, err = o.scan(ctx, sched, tasks, assets, visits)
	if err != nil {
		return nil, classify(op, err)
	}
	return emptyIfNil(conflicts), nil
}

func (o *Orchestrator) cached(ctx context.Context, id string) (*Result, bool) {
	if o.cache == nil {
		return nil, false
	}
	data, ok, err := o.cache.Get(ctx, CacheKey(id))
	if err != nil {
		o.logger.WarnContext(ctx, "simulation cache read failed", "simulation_id", id, "error", err)
		return nil, false
	}
	o.metrics.ObserveCacheLookup(ok)
	if !ok {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		o.logger.WarnContext(ctx, "discarding undecodable cached simulation", "simulation_id", id, "error", err)
		return nil, false
	}
	return &res, true
}

// storeCached writes through to the cache. A failed write is logged; the
// record can always be rebuilt from the store.
func (o *Orchestrator) storeCached(ctx context.Context, res *Result) {
	if o.cache == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		o.logger.WarnContext(ctx, "encoding simulation for cache", "simulation_id", res.SimulationID, "error", err)
		return
	}
	if err := o.cache.Set(ctx, CacheKey(res.SimulationID), data, o.cfg.CacheTTL); err != nil {
		o.logger.WarnContext(ctx, "simulation cache write failed", "simulation_id", res.SimulationID, "error", err)
	}
}

func (o *Orchestrator) purgeCached(ctx context.Context, id string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Delete(ctx, CacheKey(id)); err != nil {
		o.logger.WarnContext(ctx, "simulation cache purge failed", "simulation_id", id, "error", err)
	}
}

func scenarioType(d *scenario.Descriptor) string {
	if d == nil || d.Type == "" {
		return "unknown"
	}
	return string(d.Type)
}

// emptyIfNil keeps JSON output as [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
