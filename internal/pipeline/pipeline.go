// Package pipeline runs one transcript through extraction, parsing, validation and
// aggregation and produces a TranscriptData.
package pipeline

import (
	"context"
	"fmt"

	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/fileid"
	"github.com/hyperjump/gradsys/internal/grading"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/parser"
	"github.com/hyperjump/gradsys/internal/validate"
	"github.com/hyperjump/gradsys/pkg/utils"
	"go.uber.org/zap"
)

// State is a step of a run.
type State string

const (
	StateReceived   State = "received"
	StateExtracted  State = "extracted"
	StateParsed     State = "parsed"
	StateValidated  State = "validated"
	StateAggregated State = "aggregated"
	StateFinalized  State = "finalized"
	StateAborted    State = "aborted"
)

// Input is one uploaded transcript.
type Input struct {
	Content       []byte
	Format        extract.Format
	StudentUserID string
	// OnProgress receives extraction progress in [0, 1]. May be nil.
	OnProgress extract.ProgressFunc
}

// Pipeline holds only immutable collaborators, so one Pipeline serves any number of
// concurrent runs.
type Pipeline struct {
	extractor *extract.Extractor
	parser    *parser.Parser
	validator *validate.Validator
	scale     *grading.Scale
	logger    *zap.Logger
	onState   func(State)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for run events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithStateHook registers fn to observe every state a run enters, in order. fn is
// called from the goroutine executing Run.
func WithStateHook(fn func(State)) Option {
	return func(p *Pipeline) { p.onState = fn }
}

// New returns a pipeline over the given components.
func New(ex *extract.Extractor, ps *parser.Parser, v *validate.Validator, scale *grading.Scale, opts ...Option) *Pipeline {
	p := &Pipeline{extractor: ex, parser: ps, validator: v, scale: scale}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

type run struct {
	p     *Pipeline
	state State
}

func (r *run) enter(s State) {
	r.state = s
	if r.p.onState != nil {
		r.p.onState(s)
	}
}

func (r *run) abort(err error) *Error {
	from := r.state
	r.enter(StateAborted)
	return &Error{State: StateAborted, From: from, Err: err}
}

// Run processes in and returns the finalized transcript.
//
// A transcript that fails validation is still finalized: it comes back with
// IsValidForProcessing false, its findings, and zero aggregates. Run returns an *Error
// only when no usable record set exists. For unreadable, unsupported or empty input the
// partial transcript (with a transcript-level finding) is returned alongside the
// error. When ctx is cancelled the transcript is nil.
func (p *Pipeline) Run(ctx context.Context, in Input) (t *models.TranscriptData, err error) {
	r := &run{p: p}
	r.enter(StateReceived)
	b := &models.TranscriptData{
		StudentUserID: in.StudentUserID,
		ContentID:     fileid.ContentID(in.Content),
		Format:        string(in.Format),
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("pipeline panic", zap.Any("panic", rec), zap.String("state", string(r.state)))
			err = r.abort(fmt.Errorf("internal error: %v", rec))
			b.ValidationErrors = append(b.ValidationErrors, models.NewTranscriptError(models.CodeUnreadable, "transcript could not be processed"))
			b.IsValidForProcessing = false
			t = b
		}
	}()

	rows, err := p.extractor.Extract(ctx, in.Content, in.Format, in.OnProgress)
	if err != nil {
		return p.fail(r, b, err)
	}
	r.enter(StateExtracted)
	if err := ctx.Err(); err != nil {
		return p.fail(r, b, err)
	}

	return p.finish(ctx, r, b, rows)
}

// RunBulk processes a file holding several students' rows, grouped by the schema's
// student column, and returns one finalized transcript per student in order of first
// appearance. Rows without a student go to in.StudentUserID. A file without a student
// column is an *Error. The state hook sees the per-student states once for each
// transcript.
func (p *Pipeline) RunBulk(ctx context.Context, in Input) (ts []*models.TranscriptData, err error) {
	r := &run{p: p}
	r.enter(StateReceived)
	contentID := fileid.ContentID(in.Content)
	b := &models.TranscriptData{StudentUserID: in.StudentUserID, ContentID: contentID, Format: string(in.Format)}
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("pipeline panic", zap.Any("panic", rec), zap.String("state", string(r.state)))
			ts, err = nil, r.abort(fmt.Errorf("internal error: %v", rec))
		}
	}()

	rows, err := p.extractor.Extract(ctx, in.Content, in.Format, in.OnProgress)
	if err != nil {
		return p.failBulk(r, b, err)
	}
	r.enter(StateExtracted)
	groups, err := p.parser.Split(rows, in.StudentUserID)
	if err != nil {
		return p.failBulk(r, b, err)
	}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return p.failBulk(r, b, err)
		}
		t, err := p.finish(ctx, r, &models.TranscriptData{
			StudentUserID: g.StudentUserID,
			ContentID:     contentID,
			Format:        string(in.Format),
		}, g.Rows)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return ts, nil
}

// finish parses, validates and aggregates the extracted rows into b.
func (p *Pipeline) finish(ctx context.Context, r *run, b *models.TranscriptData, rows []extract.RawRow) (*models.TranscriptData, error) {
	records, parseErrs, err := p.parser.Parse(rows)
	if err != nil {
		return p.fail(r, b, err)
	}
	b.Rows = records
	r.enter(StateParsed)
	if err := ctx.Err(); err != nil {
		return p.fail(r, b, err)
	}

	verdict, findings := p.validator.Validate(records, parseErrs)
	b.ValidationErrors = findings
	b.IsValidForProcessing = verdict == validate.Valid
	r.enter(StateValidated)

	if b.IsValidForProcessing {
		agg := grading.Compute(records, p.scale)
		b.ParsedGPA = agg.GPA
		b.ParsedECTS = agg.TotalCredits
		r.enter(StateAggregated)
	}

	r.enter(StateFinalized)
	p.logger.Debug("transcript finalized",
		zap.String("student_user_id", b.StudentUserID),
		zap.Int("rows", len(b.Rows)),
		zap.Int("findings", len(b.ValidationErrors)),
		zap.Bool("valid", b.IsValidForProcessing),
		zap.String("gpa", b.ParsedGPA.StringFixed(2)),
		zap.Int("ects", b.ParsedECTS))
	return b, nil
}

func (p *Pipeline) failBulk(r *run, b *models.TranscriptData, err error) ([]*models.TranscriptData, error) {
	t, perr := p.fail(r, b, err)
	if t == nil {
		return nil, perr
	}
	return []*models.TranscriptData{t}, perr
}

// fail aborts the run. Cancellation discards the partial transcript; any other failure
// returns it with a transcript-level finding.
func (p *Pipeline) fail(r *run, b *models.TranscriptData, err error) (*models.TranscriptData, error) {
	perr := r.abort(err)
	if Cancelled(err) {
		p.logger.Debug("pipeline cancelled", zap.String("after", string(perr.From)))
		return nil, perr
	}
	p.logger.Debug("pipeline aborted", zap.String("after", string(perr.From)), zap.Error(err))
	b.ValidationErrors = append(b.ValidationErrors, transcriptError(err))
	b.IsValidForProcessing = false
	return b, perr
}
