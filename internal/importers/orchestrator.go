package importers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrAlreadyRun is returned when Run is called on a used Orchestrator.
var ErrAlreadyRun = errors.New("orchestrator has already run")

// Orchestrator sequences the stages of one import run. It is the only entry
// point of the package and is single-use.
type Orchestrator struct {
	store   Store
	opts    Options
	schemas map[Entity]*Schema
	coercer *Coercer
	resolve *Resolver
	upsert  *Upserter
	log     logrus.FieldLogger

	mu    sync.Mutex
	state State
}

// NewOrchestrator validates the plan and the rules and returns an idle orchestrator.
func NewOrchestrator(store Store, opts Options) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	opts = opts.withDefaults()

	if err := validateRules(opts.Rules); err != nil {
		return nil, err
	}
	schemas := buildSchemas(opts)
	if err := validatePlan(opts.Stages, schemas); err != nil {
		return nil, err
	}

	upserter, err := NewUpserter(store, opts.Rules, opts.Now)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		store:   store,
		opts:    opts,
		schemas: schemas,
		coercer: NewCoercer(opts.Now),
		resolve: NewResolver(store),
		upsert:  upserter,
		log:     opts.Logger,
		state:   StateIdle,
	}, nil
}

func validateRules(rules Rules) error {
	if rules.ScoreMin > rules.ScoreMax {
		return fmt.Errorf("invalid score range [%d, %d]", rules.ScoreMin, rules.ScoreMax)
	}
	if !slices.Contains(rules.Roles, rules.DefaultRole) {
		return fmt.Errorf("default role %q is not an allowed role", rules.DefaultRole)
	}
	return nil
}

func validatePlan(stages []Entity, schemas map[Entity]*Schema) error {
	if len(stages) == 0 {
		return errors.New("import plan has no stages")
	}
	position := make(map[Entity]int, len(stages))
	for i, entity := range stages {
		if _, ok := schemas[entity]; !ok {
			return fmt.Errorf("unknown stage %q", entity)
		}
		if _, dup := position[entity]; dup {
			return fmt.Errorf("stage %q is planned twice", entity)
		}
		position[entity] = i
	}

	for _, entity := range stages {
		schema := schemas[entity]
		for _, dep := range schema.DependsOn {
			if at, ok := position[dep]; ok && at > position[entity] {
				return fmt.Errorf("stage %q must run after %q", entity, dep)
			}
		}
		for _, ref := range schema.Refs {
			switch ref.Key {
			case LookupID, LookupAuto:
			case LookupNatural:
				if _, ok := NaturalKey(ref.Target); !ok {
					return fmt.Errorf("%s.%s: %s has no natural key", entity, ref.Field, ref.Target)
				}
			default:
				return fmt.Errorf("%s.%s: unknown lookup key %q", entity, ref.Field, ref.Key)
			}
		}
	}
	return nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run imports every planned stage in order. The returned report is never nil.
// A non-nil error means the run was aborted; the report then covers the
// stages processed so far.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		state := o.state
		o.mu.Unlock()
		return &Report{State: state, Stages: []*StageReport{}}, ErrAlreadyRun
	}
	o.state = StateRunning
	o.mu.Unlock()

	report := &Report{
		State:     StateRunning,
		StartedAt: o.opts.Now(),
		Stages:    make([]*StageReport, 0, len(o.opts.Stages)),
	}
	for _, entity := range o.opts.Stages {
		report.Stages = append(report.Stages, &StageReport{
			Entity:   entity,
			Source:   o.opts.SourcePath(entity),
			Status:   StagePending,
			Failures: []Failure{},
			Warnings: []Failure{},
		})
	}

	if err := o.store.Ping(ctx); err != nil {
		return o.abort(report, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err))
	}

	for _, stage := range report.Stages {
		if err := ctx.Err(); err != nil {
			return o.abort(report, nil, err)
		}
		if err := o.runStage(ctx, stage); err != nil {
			return o.abort(report, stage, err)
		}
	}

	o.setState(StateCompleted)
	report.State = StateCompleted
	report.FinishedAt = o.opts.Now()

	created, skipped, failed := report.Totals()
	o.log.WithFields(logrus.Fields{
		"created": created,
		"skipped": skipped,
		"failed":  failed,
	}).Info("Import completed")
	return report, nil
}

func (o *Orchestrator) abort(report *Report, stage *StageReport, err error) (*Report, error) {
	if stage != nil {
		stage.Status = StageAborted
	}
	o.setState(StateAborted)
	report.State = StateAborted
	report.FinishedAt = o.opts.Now()
	report.Error = err.Error()
	o.log.WithError(err).Error("Import aborted")
	return report, err
}

func (o *Orchestrator) handler(entity Entity) RowHandler {
	schema := o.schemas[entity]
	if entity == EntityTitleGenre {
		return NewLinkResolver(schema, o.resolve, o.upsert)
	}
	return NewPipeline(schema, o.coercer, o.resolve, o.upsert)
}

func (o *Orchestrator) runStage(ctx context.Context, stage *StageReport) error {
	log := o.log.WithFields(logrus.Fields{"entity": stage.Entity, "source": stage.Source})
	schema := o.schemas[stage.Entity]

	reader, err := Source{Entity: stage.Entity, Path: stage.Source}.Open(schema.RequiredColumns())
	if err != nil {
		stage.Error = err.Error()
		if errors.Is(err, ErrSourceNotFound) {
			stage.Status = StageSourceMissing
			log.Warn("Source file not found, skipping stage")
			return nil
		}
		stage.Status = StageSourceInvalid
		log.WithError(err).Warn("Source file unusable, skipping stage")
		return nil
	}
	defer reader.Close()

	log.Info("Importing stage")
	handler := o.handler(stage.Entity)

	for row, err := range reader.Rows() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var res RowResult
		if err != nil {
			res = failedRow(row.Line, err)
		} else {
			res, err = handler.Handle(ctx, row)
			if err != nil {
				return fmt.Errorf("%s line %d: %w", stage.Entity, row.Line, err)
			}
		}

		stage.record(res)
		if res.Outcome == RowFailed {
			log.WithFields(logrus.Fields{
				"line": res.Line,
				"kind": res.Kind,
			}).Warn(res.Reason)
		}
		if res.Warning != nil {
			log.WithFields(logrus.Fields{
				"line":   res.Line,
				"kind":   res.Warning.Kind,
				"reason": res.Warning.Reason,
			}).Warn("Row stored without optional reference")
		}
	}

	stage.Status = StageCompleted
	log.WithFields(logrus.Fields{
		"created": stage.Created,
		"skipped": stage.Skipped,
		"failed":  stage.Failed,
	}).Info("Stage completed")
	return nil
}
