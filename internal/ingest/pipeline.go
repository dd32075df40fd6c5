// Package ingest drives the batch pipeline: normalize raw rows, render
// summaries, embed them and upsert the results into the vector store.
// One bad row never aborts the batch; every skipped record is accounted for
// in the returned report.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/scrypster/paceline/internal/activity"
	"github.com/scrypster/paceline/internal/config"
	"github.com/scrypster/paceline/internal/llm"
	"github.com/scrypster/paceline/internal/storage"
	"github.com/scrypster/paceline/internal/summarize"
)

// Options controls one pipeline run.
type Options struct {
	// DryRun skips embedding and storage entirely and fills Report.Previews
	// instead, so summaries can be inspected before committing anything.
	DryRun bool

	// PreviewLimit caps how many summary documents a dry run returns
	// (default: 5).
	PreviewLimit int
}

// RowError records one row that failed normalization or embedding.
type RowError struct {
	Index int    // position of the row in the input batch
	ID    string // activity id when normalization got far enough, else ""
	Err   error
}

// Report is the outcome of one pipeline run. Succeeded + Failed + Skipped
// always equals the number of input rows.
type Report struct {
	RunID     string
	Succeeded int
	Failed    int
	Skipped   int
	Previews  []summarize.Document
	Errors    []RowError
}

// Pipeline wires the normalizer and summarizer to an embedding provider and
// a vector store.
type Pipeline struct {
	store      storage.VectorStore
	embedder   llm.EmbeddingGenerator
	collection string
	retry      llm.RetryPolicy
	limiter    *rate.Limiter
	workers    int
	batchSize  int
}

// New creates a Pipeline from the ingest configuration.
func New(store storage.VectorStore, embedder llm.EmbeddingGenerator, collection string, cfg config.IngestConfig) *Pipeline {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 16
	}
	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 5
	}

	retry := llm.DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		retry.BaseDelay = cfg.RetryBaseDelay
	}

	return &Pipeline{
		store:      store,
		embedder:   embedder,
		collection: collection,
		retry:      retry,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), workers),
		workers:    workers,
		batchSize:  batchSize,
	}
}

// job is one embedding batch unit handed to the worker pool.
type job struct {
	docs    []summarize.Document
	indexes []int // original row positions, for error reporting
}

// Run executes the pipeline over a batch of raw rows.
//
// Normalization failures are counted and skipped. In dry-run mode the first
// PreviewLimit summaries are returned and no provider or store call is made.
// Otherwise summaries are embedded through a bounded worker pool (grouped
// into provider-sized batches, with per-record fallback when a whole batch
// fails) and upserted under their stable activity ids.
func (p *Pipeline) Run(ctx context.Context, rows []activity.Row, opts Options) (*Report, error) {
	report := &Report{RunID: uuid.New().String()}

	var docs []summarize.Document
	var docRows []int
	for i, row := range rows {
		rec, err := activity.Normalize(row)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, RowError{Index: i, Err: err})
			continue
		}
		docs = append(docs, summarize.Summarize(rec))
		docRows = append(docRows, i)
	}

	if opts.DryRun {
		limit := opts.PreviewLimit
		if limit <= 0 {
			limit = 5
		}
		if limit > len(docs) {
			limit = len(docs)
		}
		report.Previews = docs[:limit]
		report.Skipped = len(docs)
		return report, nil
	}

	entries, rowErrs := p.embedAll(ctx, docs, docRows)
	for _, re := range rowErrs {
		report.Failed++
		report.Errors = append(report.Errors, re)
	}

	if len(entries) == 0 {
		return report, nil
	}

	if err := p.store.EnsureCollection(ctx, p.collection, len(entries[0].Vector), p.embedder.GetModel()); err != nil {
		return report, fmt.Errorf("ingest: ensure collection: %w", err)
	}
	if err := p.store.Upsert(ctx, p.collection, entries); err != nil {
		return report, fmt.Errorf("ingest: upsert: %w", err)
	}

	report.Succeeded = len(entries)
	return report, nil
}

// embedAll runs the embedding calls through a bounded worker pool. Results
// are collected under a mutex; ordering within the batch is irrelevant
// because entries are keyed by id.
func (p *Pipeline) embedAll(ctx context.Context, docs []summarize.Document, docRows []int) ([]storage.Entry, []RowError) {
	jobs := make(chan job)
	var (
		mu      sync.Mutex
		entries []storage.Entry
		rowErrs []RowError
	)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				got, errs := p.embedBatch(ctx, j)
				mu.Lock()
				entries = append(entries, got...)
				rowErrs = append(rowErrs, errs...)
				mu.Unlock()
			}
		}()
	}

	for start := 0; start < len(docs); start += p.batchSize {
		end := start + p.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		jobs <- job{docs: docs[start:end], indexes: docRows[start:end]}
	}
	close(jobs)
	wg.Wait()

	return entries, rowErrs
}

// embedBatch embeds one batch, falling back to per-record calls when the
// batch as a whole fails so a single poisoned text cannot sink its
// neighbors. Both paths produce identical stored results.
func (p *Pipeline) embedBatch(ctx context.Context, j job) ([]storage.Entry, []RowError) {
	texts := make([]string, len(j.docs))
	for i, d := range j.docs {
		texts[i] = d.Text
	}

	var vecs [][]float64
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		var embedErr error
		vecs, embedErr = p.embedder.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err == nil {
		entries := make([]storage.Entry, len(j.docs))
		for i, d := range j.docs {
			entries[i] = storage.Entry{ID: d.ID, Vector: vecs[i], Document: d.Text, Metadata: d.Metadata}
		}
		return entries, nil
	}

	if len(j.docs) == 1 {
		return nil, []RowError{{Index: j.indexes[0], ID: j.docs[0].ID, Err: err}}
	}

	// Batch failed after retries: try each record on its own.
	var entries []storage.Entry
	var rowErrs []RowError
	for i, d := range j.docs {
		var vec []float64
		err := p.retry.Do(ctx, func(ctx context.Context) error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			var embedErr error
			vec, embedErr = p.embedder.Embed(ctx, d.Text)
			return embedErr
		})
		if err != nil {
			rowErrs = append(rowErrs, RowError{Index: j.indexes[i], ID: d.ID, Err: err})
			continue
		}
		entries = append(entries, storage.Entry{ID: d.ID, Vector: vec, Document: d.Text, Metadata: d.Metadata})
	}
	return entries, rowErrs
}
