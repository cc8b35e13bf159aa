// Package migrate copies records out of the synchronous key-value tier into
// the object store. A migration is a single best-effort pass: each record is
// read, parsed, and written on its own, failures are collected rather than
// aborting, and nothing is rolled back.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/imkarma/streak/internal/kv"
	"github.com/imkarma/streak/internal/store"
)

const (
	DefaultName      = "gamification-v1"
	DefaultPrefix    = "gamification:"
	DefaultNamespace = "gamification"
)

// ErrMalformed marks a source value that is not well-formed JSON.
var ErrMalformed = errors.New("malformed record")

// Target is the object-store side of a migration.
type Target interface {
	Put(ctx context.Context, namespace, key string, value []byte) error
	StartRun(ctx context.Context, name string) (int64, error)
	EndRun(ctx context.Context, runID int64, out store.RunOutcome) error
	LastRun(ctx context.Context, name string) (*store.MigrationRun, error)
}

// ProgressFunc is called before each record is copied.
type ProgressFunc func(current, total int, key string)

// Options controls a migration run. Zero values take the defaults above.
type Options struct {
	Name      string
	Prefix    string
	Namespace string

	// Force runs even when a previous run completed. Records are keyed, so
	// a forced run overwrites rather than duplicates.
	Force bool

	// RemoveSource deletes each source key once its record is written.
	RemoveSource bool

	Progress ProgressFunc
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// RecordResult is the outcome for one source key.
type RecordResult struct {
	SourceKey string
	TargetKey string
	Bytes     int
	Err       error
}

// OK reports whether the record was written.
func (r RecordResult) OK() bool { return r.Err == nil }

// Report summarizes a run for display.
type Report struct {
	Name      string
	RunID     int64
	Status    store.RunStatus
	Skipped   bool // A previous run had already completed
	Previous  *store.MigrationRun
	Total     int
	Migrated  int
	Failed    int
	Removed   int
	Results   []RecordResult
	StartTime time.Time
	EndTime   time.Time
}

// Duration is how long the pass took.
func (r *Report) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Errors returns the failed results.
func (r *Report) Errors() []RecordResult {
	var out []RecordResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Run performs the migration from src into dst. The returned error is only
// non-nil when the pass could not start or was cancelled; per-record
// failures are in the report.
func Run(ctx context.Context, src kv.Store, dst Target, opts Options) (*Report, error) {
	opts.defaults()
	log := opts.Logger.With("migration", opts.Name)

	report := &Report{Name: opts.Name, StartTime: time.Now()}

	prev, err := dst.LastRun(ctx, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("check previous run: %w", err)
	}
	report.Previous = prev
	if prev != nil && prev.Status == store.RunCompleted && !opts.Force {
		log.Info("already completed, skipping", "run_id", prev.ID, "ended_at", prev.EndedAt)
		report.Skipped = true
		report.Status = prev.Status
		report.EndTime = time.Now()
		return report, nil
	}

	runID, err := dst.StartRun(ctx, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}
	report.RunID = runID

	keys, err := kv.KeysWithPrefix(src, opts.Prefix)
	if err != nil {
		report.Status = store.RunFailed
		report.EndTime = time.Now()
		endRun(ctx, dst, report, log)
		return report, fmt.Errorf("enumerate source keys: %w", err)
	}
	report.Total = len(keys)
	log.Debug("starting pass", "records", len(keys), "namespace", opts.Namespace)

	for i, key := range keys {
		if ctx.Err() != nil {
			break
		}
		if opts.Progress != nil {
			opts.Progress(i, len(keys), key)
		}

		res := copyRecord(ctx, src, dst, key, opts)
		report.Results = append(report.Results, res)
		if !res.OK() {
			report.Failed++
			log.Warn("record failed", "key", key, "error", res.Err)
			continue
		}
		report.Migrated++

		if opts.RemoveSource {
			if err := src.Remove(key); err != nil {
				log.Warn("could not remove migrated source key", "key", key, "error", err)
				continue
			}
			report.Removed++
		}
	}

	if err := ctx.Err(); err != nil {
		report.Status = store.RunInterrupted
		report.EndTime = time.Now()
		endRun(ctx, dst, report, log)
		return report, fmt.Errorf("migration interrupted after %d of %d records: %w", len(report.Results), len(keys), err)
	}

	report.Status = store.RunCompleted
	if report.Failed > 0 {
		report.Status = store.RunPartial
	}
	report.EndTime = time.Now()
	endRun(ctx, dst, report, log)

	log.Info("migration finished",
		"status", report.Status,
		"total", report.Total,
		"migrated", report.Migrated,
		"failed", report.Failed,
	)
	return report, nil
}

func copyRecord(ctx context.Context, src kv.Store, dst Target, key string, opts Options) RecordResult {
	res := RecordResult{
		SourceKey: key,
		TargetKey: strings.TrimPrefix(key, opts.Prefix),
	}
	if res.TargetKey == "" {
		res.Err = fmt.Errorf("key %q has nothing after the prefix", key)
		return res
	}

	raw, ok, err := src.Get(key)
	if err != nil {
		res.Err = fmt.Errorf("read: %w", err)
		return res
	}
	if !ok {
		// Removed between enumeration and read.
		res.Err = fmt.Errorf("read: key vanished")
		return res
	}
	if !json.Valid([]byte(raw)) {
		res.Err = fmt.Errorf("parse: %w", ErrMalformed)
		return res
	}

	payload := []byte(raw)
	res.Bytes = len(payload)
	if err := dst.Put(ctx, opts.Namespace, res.TargetKey, payload); err != nil {
		res.Err = fmt.Errorf("write: %w", err)
		return res
	}
	return res
}

// endRun records the outcome. It runs detached from ctx cancellation so an
// interrupted pass still closes its run row.
func endRun(ctx context.Context, dst Target, r *Report, log *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	out := store.RunOutcome{
		Status:   r.Status,
		Total:    r.Total,
		Migrated: r.Migrated,
		Failed:   r.Failed,
	}
	if err := dst.EndRun(ctx, r.RunID, out); err != nil {
		log.Error("could not record run outcome", "run_id", r.RunID, "error", err)
	}
}
