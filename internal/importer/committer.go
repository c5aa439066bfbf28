package importer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"checkinDesk/internal/model"
)

const (
	DefaultBatchSize        = 25
	DefaultErrorDetailLimit = 10
)

// AttendeeStore is the persistence the import pipeline needs.
type AttendeeStore interface {
	ListNames(ctx context.Context) ([]string, error)
	CreateBatch(ctx context.Context, attendees []model.Attendee) error
	Create(ctx context.Context, attendee *model.Attendee) error
}

// CommitResult accumulates outcomes across batches.
type CommitResult struct {
	Uploaded int
	Errors   int
	Details  []string
}

type Committer struct {
	store       AttendeeStore
	batchSize   int
	detailLimit int
	log         *zerolog.Logger
}

func NewCommitter(store AttendeeStore, batchSize, detailLimit int, log *zerolog.Logger) *Committer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if detailLimit <= 0 {
		detailLimit = DefaultErrorDetailLimit
	}
	return &Committer{store: store, batchSize: batchSize, detailLimit: detailLimit, log: log}
}

// Commit inserts records batch by batch. A failed batch is retried one
// record at a time; later batches run regardless.
func (c *Committer) Commit(ctx context.Context, records []model.Attendee) CommitResult {
	var res CommitResult
	for start := 0; start < len(records); start += c.batchSize {
		end := min(start+c.batchSize, len(records))
		c.commitBatch(ctx, records[start:end], &res)
	}
	return res
}

func (c *Committer) commitBatch(ctx context.Context, batch []model.Attendee, res *CommitResult) {
	if len(batch) == 0 {
		return
	}
	err := c.store.CreateBatch(ctx, batch)
	if err == nil {
		res.Uploaded += len(batch)
		return
	}

	c.log.Warn().Err(err).Int("size", len(batch)).Msg("batch insert failed, retrying records one by one")
	for i := range batch {
		a := batch[i]
		if err := c.store.Create(ctx, &a); err != nil {
			res.Errors++
			msg := fmt.Sprintf("Failed to create attendee %s: %v", a.Name, err)
			c.log.Error().Err(err).Str("name", a.Name).Msg("attendee insert failed")
			if len(res.Details) < c.detailLimit {
				res.Details = append(res.Details, msg)
			}
			continue
		}
		res.Uploaded++
	}
}
