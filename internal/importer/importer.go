package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"checkinDesk/internal/model"
)

var (
	ErrEmptyFile  = errors.New("spreadsheet is empty")
	ErrNoDataRows = errors.New("spreadsheet has no data rows")
)

// ColumnsNotFoundError rejects a sheet where neither a name nor an email
// column could be resolved.
type ColumnsNotFoundError struct {
	Headers []string
}

func (e *ColumnsNotFoundError) Error() string {
	return fmt.Sprintf("no name or email column among %d headers", len(e.Headers))
}

// Notifier is told about finished uploads. Failures are logged only.
type Notifier interface {
	BulkUploadCompleted(ctx context.Context, uploaded, errors int) error
}

// StatsInvalidator drops cached dashboard figures after new attendees land.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

type Config struct {
	BatchSize        int
	ErrorDetailLimit int
	Policy           Policy
	Rules            []FieldRule
}

type Upload struct {
	Filename string
	Content  []byte
}

type DetectedHeaders struct {
	AllHeaders   []string `json:"allHeaders"`
	NameColumn   *Column  `json:"nameColumn"`
	EmailColumn  *Column  `json:"emailColumn"`
	PhoneColumn  *Column  `json:"phoneColumn"`
	NameFallback bool     `json:"nameFallback"`
}

type Summary struct {
	Message         string          `json:"message"`
	Uploaded        int             `json:"uploaded"`
	Duplicates      int             `json:"duplicates"`
	Skipped         int             `json:"skipped"`
	Errors          int             `json:"errors"`
	TotalProcessed  int             `json:"totalProcessed"`
	DetectedHeaders DetectedHeaders `json:"detectedHeaders"`
	ErrorDetails    []string        `json:"errorDetails,omitempty"`
}

type Importer struct {
	store     AttendeeStore
	matcher   *Matcher
	committer *Committer
	cfg       Config
	notifier  Notifier
	stats     StatsInvalidator
	now       func() time.Time
	render    RenderFunc
	log       *zerolog.Logger
}

type Option func(*Importer)

func WithNotifier(n Notifier) Option { return func(i *Importer) { i.notifier = n } }

func WithStatsInvalidator(s StatsInvalidator) Option { return func(i *Importer) { i.stats = s } }

func WithClock(now func() time.Time) Option { return func(i *Importer) { i.now = now } }

func WithRenderer(r RenderFunc) Option { return func(i *Importer) { i.render = r } }

func New(store AttendeeStore, cfg Config, log *zerolog.Logger, opts ...Option) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ErrorDetailLimit <= 0 {
		cfg.ErrorDetailLimit = DefaultErrorDetailLimit
	}
	i := &Importer{
		store:     store,
		matcher:   NewMatcher(cfg.Rules, log),
		committer: NewCommitter(store, cfg.BatchSize, cfg.ErrorDetailLimit, log),
		cfg:       cfg,
		now:       time.Now,
		render:    RenderPNG,
		log:       log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type slot struct {
	candidate Candidate
	ok        bool
}

// Import runs one upload end to end and returns its summary. Input that
// cannot be imported at all is reported as ErrEmptyFile, ErrNoDataRows or
// *ColumnsNotFoundError; row-level problems only show up in the counts.
func (i *Importer) Import(ctx context.Context, up Upload) (*Summary, error) {
	started := i.now()

	sheet, err := ReadSheet(up.Filename, up.Content)
	if err != nil {
		return nil, err
	}

	mapping := i.matcher.Resolve(sheet.Headers)
	i.log.Info().
		Str("file", up.Filename).
		Strs("headers", sheet.Headers).
		Int("rows", len(sheet.Rows)).
		Int("name_col", mapping.Index(FieldName)).
		Int("email_col", mapping.Index(FieldEmail)).
		Int("phone_col", mapping.Index(FieldPhone)).
		Bool("name_fallback", mapping.NameFallback).
		Msg("columns resolved")

	if len(sheet.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	if mapping.Index(FieldName) < 0 && mapping.Index(FieldEmail) < 0 {
		return nil, &ColumnsNotFoundError{Headers: sheet.Headers}
	}

	existing, err := i.store.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing names: %w", err)
	}
	dedup := NewDedup(existing)
	qr := NewQRAssigner(started.UnixMilli(), i.render)

	summary := &Summary{
		DetectedHeaders: DetectedHeaders{
			AllHeaders:   sheet.Headers,
			NameColumn:   mapping.Column(FieldName),
			EmailColumn:  mapping.Column(FieldEmail),
			PhoneColumn:  mapping.Column(FieldPhone),
			NameFallback: mapping.NameFallback,
		},
	}

	accepted := make([]model.Attendee, 0, len(sheet.Rows))
	size := i.cfg.BatchSize
	for start := 0; start < len(sheet.Rows); start += size {
		group := sheet.Rows[start:min(start+size, len(sheet.Rows))]
		slots := make([]slot, len(group))

		var g errgroup.Group
		g.SetLimit(size)
		for n, row := range group {
			g.Go(func() error {
				c, ok := Normalize(row, mapping, i.cfg.Policy)
				slots[n] = slot{candidate: c, ok: ok}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for n := range slots {
			s := &slots[n]
			if !s.ok {
				i.log.Debug().Int("row", group[n].Index+1).Msg("row skipped, no name or email")
				summary.Skipped++
				continue
			}
			summary.TotalProcessed++

			if !dedup.Admit(s.candidate.Name) {
				i.log.Debug().Int("row", s.candidate.RowIndex+1).Str("name", s.candidate.Name).Msg("duplicate name")
				summary.Duplicates++
				continue
			}
			if err := qr.Assign(&s.candidate); err != nil {
				i.log.Error().Err(err).Int("row", s.candidate.RowIndex+1).Msg("qr generation failed")
				dedup.Release(s.candidate.Name)
				summary.Skipped++
				continue
			}
			accepted = append(accepted, s.candidate.Attendee)
		}
	}

	res := i.committer.Commit(ctx, accepted)
	summary.Uploaded = res.Uploaded
	summary.Errors = res.Errors
	summary.ErrorDetails = res.Details
	summary.Message = fmt.Sprintf(
		"Upload completed. %d attendees added, %d duplicates skipped, %d rows skipped (no data), %d errors.",
		summary.Uploaded, summary.Duplicates, summary.Skipped, summary.Errors,
	)

	i.log.Info().
		Int("uploaded", summary.Uploaded).
		Int("duplicates", summary.Duplicates).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Int("known_names", dedup.Len()).
		Dur("took", i.now().Sub(started)).
		Msg("upload finished")

	if i.stats != nil {
		i.stats.Invalidate(ctx)
	}
	if i.notifier != nil {
		if err := i.notifier.BulkUploadCompleted(ctx, summary.Uploaded, summary.Errors); err != nil {
			i.log.Warn().Err(err).Msg("failed to record upload notification")
		}
	}
	return summary, nil
}
