package finetune

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/ai"
	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/repo"
)

// Outcome summarizes what one Run invocation did for a company.
type Outcome int

const (
	// OutcomeNoop means nothing needed doing or a transient error left the
	// state untouched.
	OutcomeNoop Outcome = iota
	// OutcomeThrottled means an attempt was due but the retry policy
	// (attempt cap or cool-down) skipped it.
	OutcomeThrottled
	// OutcomeStarted means a fresh training job was submitted.
	OutcomeStarted
	// OutcomeStillTraining means a pending job has not finished yet.
	OutcomeStillTraining
	// OutcomeReady means a finished job's model id was recorded.
	OutcomeReady
	// OutcomeRestarted means a failed job was replaced with a new one.
	OutcomeRestarted
	// OutcomeFailed means an attempt was made and failed; the company is
	// left in the failed state.
	OutcomeFailed
)

// String returns a short label for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeThrottled:
		return "throttled"
	case OutcomeStarted:
		return "started"
	case OutcomeStillTraining:
		return "still-training"
	case OutcomeReady:
		return "ready"
	case OutcomeRestarted:
		return "restarted"
	case OutcomeFailed:
		return "failed"
	default:
		return "noop"
	}
}

// Trainer is the slice of the AI gateway the lifecycle manager needs.
type Trainer interface {
	UploadDataset(ctx context.Context, name string, jsonl []byte) (string, error)
	StartTrainingJob(ctx context.Context, fileID, baseModel string) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (ai.JobStatus, string, error)
}

// DatasetSynthesizer produces JSONL training bytes for a company.
type DatasetSynthesizer interface {
	Synthesize(ctx context.Context, c *domain.Company) ([]byte, error)
}

// DatasetStore persists datasets keyed by company slug.
type DatasetStore interface {
	Save(slug string, data []byte) (string, error)
	Filename(slug string) string
}

// Manager drives the fine-tune state machine. It owns every transition of
// Company.ModelRef except the reset a description edit performs; its writes
// are conditional on the value read under the per-company mutex, so a
// concurrent reset always wins over a stale result. Work for the same
// company is serialized through a per-company mutex, so the scheduler sweep
// and description-update triggers can overlap safely.
type Manager struct {
	db        *gorm.DB
	trainer   Trainer
	synth     DatasetSynthesizer
	store     DatasetStore
	policy    *RetryPolicy
	baseModel string
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager wires a lifecycle manager.
func NewManager(db *gorm.DB, trainer Trainer, synth DatasetSynthesizer, store DatasetStore, policy *RetryPolicy, baseModel string, log zerolog.Logger) *Manager {
	return &Manager{
		db:        db,
		trainer:   trainer,
		synth:     synth,
		store:     store,
		policy:    policy,
		baseModel: baseModel,
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockCompany returns the mutex for a company, creating it on first use.
// Entries are never removed; the map is bounded by the tenant count.
func (m *Manager) lockCompany(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// ResetAttempts clears the retry budget for a company, used when its
// description changes and a fresh cycle is wanted.
func (m *Manager) ResetAttempts(companyID string) {
	m.policy.Reset(companyID)
}

// Run advances the state machine for one company by at most one step:
// start a job, poll a pending job, record a finished model, or restart a
// failed job once. It never panics past its boundary.
func (m *Manager) Run(ctx context.Context, companyID string) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = OutcomeFailed
			err = fmt.Errorf("finetune: panic in lifecycle run: %v", r)
			m.log.Error().Str("company_id", companyID).Interface("panic", r).Msg("lifecycle run panicked")
		}
	}()

	l := m.lockCompany(companyID)
	l.Lock()
	defer l.Unlock()

	company, err := repo.GetCompany(ctx, m.db, companyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return OutcomeNoop, ErrCompanyNotFound
		}
		return OutcomeNoop, err
	}

	ref := domain.ParseModelReference(company.ModelRef)
	switch ref.State {
	case domain.ModelReady:
		return OutcomeNoop, nil

	case domain.ModelUnset, domain.ModelFailed:
		if company.Description == "" {
			return OutcomeNoop, nil
		}
		if !m.policy.Allow(company.ID) {
			return OutcomeThrottled, nil
		}
		return m.startAttempt(ctx, company, ref)

	case domain.ModelPending:
		return m.pollPending(ctx, company, ref.JobID)

	default:
		return OutcomeNoop, nil
	}
}

// pollPending checks on a submitted job and applies the result. Both
// terminal writes are conditional on the pending marker read under the
// lock: a description edit that reset the reference while the poll was in
// flight invalidates the job, and its result is discarded.
func (m *Manager) pollPending(ctx context.Context, company *domain.Company, jobID string) (Outcome, error) {
	status, modelID, err := m.trainer.GetJobStatus(ctx, jobID)
	if err != nil {
		// Transient: leave the pending marker in place for the next sweep.
		return OutcomeNoop, fmt.Errorf("poll job %s: %w", jobID, err)
	}

	pending := domain.PendingRef(jobID)
	switch status {
	case ai.JobSucceeded:
		if modelID == "" {
			// Succeeded without a model id has been observed mid-finalization.
			return OutcomeStillTraining, nil
		}
		ok, err := repo.UpdateModelReferenceIf(ctx, m.db, company.ID, pending, domain.ReadyRef(modelID))
		if err != nil {
			return OutcomeNoop, err
		}
		if !ok {
			m.log.Info().Str("company_id", company.ID).Str("job_id", jobID).Msg("discarding finished job, reference changed during poll")
			return OutcomeNoop, nil
		}
		m.policy.Reset(company.ID)
		m.log.Info().Str("company_id", company.ID).Str("model_id", modelID).Msg("fine-tuned model ready")
		return OutcomeReady, nil

	case ai.JobFailed:
		ok, err := repo.UpdateModelReferenceIf(ctx, m.db, company.ID, pending, domain.FailedRef())
		if err != nil {
			return OutcomeNoop, err
		}
		if !ok {
			m.log.Info().Str("company_id", company.ID).Str("job_id", jobID).Msg("discarding failed job, reference changed during poll")
			return OutcomeNoop, nil
		}
		m.log.Warn().Str("company_id", company.ID).Str("job_id", jobID).Msg("training job failed")
		if company.Description == "" {
			return OutcomeFailed, nil
		}
		if !m.policy.Allow(company.ID) {
			return OutcomeThrottled, nil
		}
		// One restart per invocation; further failures wait for the next sweep.
		out, err := m.startAttempt(ctx, company, domain.FailedRef())
		if out == OutcomeStarted {
			return OutcomeRestarted, err
		}
		return out, err

	default:
		return OutcomeStillTraining, nil
	}
}

// startAttempt runs one full attempt: synthesize, store, upload, submit.
// Any failure leaves the company in the failed state and counts against the
// retry budget. State writes are conditional on expected, the reference
// read under the lock; when a concurrent description reset wins, the
// submitted job is abandoned.
func (m *Manager) startAttempt(ctx context.Context, company *domain.Company, expected domain.ModelReference) (Outcome, error) {
	m.policy.Record(company.ID)

	fail := func(stage string, cause error) (Outcome, error) {
		if ok, uerr := repo.UpdateModelReferenceIf(ctx, m.db, company.ID, expected, domain.FailedRef()); uerr != nil {
			m.log.Error().Err(uerr).Str("company_id", company.ID).Msg("could not record failed state")
		} else if !ok {
			m.log.Info().Str("company_id", company.ID).Msg("failed state not recorded, reference changed during attempt")
		}
		m.log.Warn().Err(cause).Str("company_id", company.ID).Str("stage", stage).Msg("training attempt failed")
		return OutcomeFailed, fmt.Errorf("%s: %w", stage, cause)
	}

	data, err := m.synth.Synthesize(ctx, company)
	if err != nil {
		return fail("synthesize dataset", err)
	}
	if _, err := m.store.Save(company.Slug, data); err != nil {
		return fail("store dataset", err)
	}
	fileID, err := m.trainer.UploadDataset(ctx, m.store.Filename(company.Slug), data)
	if err != nil {
		return fail("upload dataset", err)
	}
	jobID, err := m.trainer.StartTrainingJob(ctx, fileID, m.baseModel)
	if err != nil {
		return fail("start training job", err)
	}

	ok, err := repo.UpdateModelReferenceIf(ctx, m.db, company.ID, expected, domain.PendingRef(jobID))
	if err != nil {
		return OutcomeNoop, err
	}
	if !ok {
		m.log.Warn().Str("company_id", company.ID).Str("job_id", jobID).Msg("abandoning submitted job, reference changed during attempt")
		return OutcomeNoop, nil
	}
	m.log.Info().Str("company_id", company.ID).Str("job_id", jobID).Msg("training job submitted")
	return OutcomeStarted, nil
}
