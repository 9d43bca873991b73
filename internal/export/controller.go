// Package export converts annotated pages into Markdown artifacts and a
// search index when the export phase is active.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docexport/internal/config"
	"git.home.luguber.info/inful/docexport/internal/convert"
	derrors "git.home.luguber.info/inful/docexport/internal/errors"
	"git.home.luguber.info/inful/docexport/internal/linkresolve"
	"git.home.luguber.info/inful/docexport/internal/logfields"
	"git.home.luguber.info/inful/docexport/internal/metadata"
	"git.home.luguber.info/inful/docexport/internal/metrics"
	"git.home.luguber.info/inful/docexport/internal/searchindex"
	"git.home.luguber.info/inful/docexport/internal/site"
	"git.home.luguber.info/inful/docexport/internal/storage"
)

// ErrDuplicateIdentity is returned when two pages normalize to the same
// identity or artifact path.
var ErrDuplicateIdentity = searchindex.ErrDuplicateIdentity

// Controller runs the export phase over a site's pages.
type Controller struct {
	cfg      config.ExportConfig
	store    storage.Store
	sinks    []searchindex.Sink
	resolver linkresolve.Resolver
	language searchindex.LanguageDetector
	recorder metrics.Recorder
	newRunID func() string
}

// NewController creates a controller writing through store. The JSON index
// sink is always configured; the SQLite sink when cfg.SQLiteIndex is set.
func NewController(cfg config.ExportConfig, store storage.Store) *Controller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.IndexFile == "" {
		cfg.IndexFile = config.DefaultIndexFile
	}
	c := &Controller{
		cfg:      cfg,
		store:    store,
		resolver: linkresolve.Default,
		recorder: metrics.NoopRecorder{},
		newRunID: uuid.NewString,
	}
	c.sinks = append(c.sinks, searchindex.NewJSONSink(store, cfg.IndexFile))
	if cfg.SQLiteIndex != "" {
		dbPath := cfg.SQLiteIndex
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(cfg.OutputDir, dbPath)
		}
		c.sinks = append(c.sinks, searchindex.NewSQLiteSink(dbPath))
	}
	return c
}

// WithResolver replaces the link resolver used by the converter.
func (c *Controller) WithResolver(r linkresolve.Resolver) *Controller {
	if r != nil {
		c.resolver = r
	}
	return c
}

// WithLanguageDetector enables language tagging of index entries.
func (c *Controller) WithLanguageDetector(d searchindex.LanguageDetector) *Controller {
	c.language = d
	return c
}

// WithRecorder sets the metrics recorder.
func (c *Controller) WithRecorder(r metrics.Recorder) *Controller {
	if r != nil {
		c.recorder = r
	}
	return c
}

// WithSinks replaces the index sinks.
func (c *Controller) WithSinks(sinks ...searchindex.Sink) *Controller {
	c.sinks = sinks
	return c
}

// WithRunID sets the run ID generator.
func (c *Controller) WithRunID(fn func() string) *Controller {
	if fn != nil {
		c.newRunID = fn
	}
	return c
}

// pageResult is the outcome of exporting one page.
type pageResult struct {
	entry searchindex.Entry
	put   storage.PutResult
	err   error
}

// Run exports pages. Integrity and output problems are fatal and detected
// before any artifact is written; page failures are recorded in the report
// and the page is left out of the artifacts and the index.
func (c *Controller) Run(ctx context.Context, pages []*site.Page) (*Report, error) {
	report := &Report{RunID: c.newRunID(), OutputDir: c.cfg.OutputDir, Start: time.Now(), Pages: len(pages)}
	log := slog.With(logfields.RunID(report.RunID))

	if err := checkIdentities(pages); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryPipeline, derrors.SeverityFatal, "export canceled")
	}
	if err := c.store.Probe(ctx); err != nil {
		return nil, derrors.OutputUnwritable(c.cfg.OutputDir, err)
	}

	results := c.exportPages(ctx, pages)
	if err := ctx.Err(); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryPipeline, derrors.SeverityFatal, "export canceled")
	}

	index := searchindex.New()
	artifacts := make(map[string]bool, len(pages))
	for i, res := range results {
		id := pages[i].Identity()
		if res.err != nil {
			report.Failures = append(report.Failures, PageFailure{Identity: id, Err: res.err})
			c.recorder.IncPageResult(metrics.ResultFailed)
			log.Warn("Page export failed", logfields.Page(id), logfields.Error(res.err))
			continue
		}
		if err := index.Add(res.entry); err != nil {
			return nil, derrors.DuplicateIdentity(id, err)
		}
		artifacts[res.put.Path] = true
		if res.put.Written {
			report.Written++
			c.recorder.IncPageResult(metrics.ResultSuccess)
		} else {
			report.Unchanged++
			c.recorder.IncPageResult(metrics.ResultUnchanged)
		}
	}

	if err := index.Flush(ctx, c.sinks...); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryFileSystem, derrors.SeverityFatal, "write search index")
	}
	report.IndexEntries = index.Len()
	c.recorder.SetIndexEntries(report.IndexEntries)

	if c.cfg.MetadataFile != "" {
		if err := c.writeMetadata(ctx, pages); err != nil {
			return nil, derrors.Wrap(err, derrors.CategoryFileSystem, derrors.SeverityFatal, "write metadata sidecar")
		}
	}

	if c.cfg.Prune {
		pruned, err := c.prune(ctx, artifacts)
		if err != nil {
			log.Warn("Pruning stale artifacts failed", logfields.Error(err))
		}
		report.Pruned = pruned
	}

	report.End = time.Now()
	log.Info("Export completed",
		logfields.Path(c.cfg.OutputDir),
		logfields.Count(report.Exported()),
		slog.Int("written", report.Written),
		slog.Int("failed", report.Failed()),
		slog.Int("index_entries", report.IndexEntries),
		logfields.DurationMS(float64(report.Duration().Milliseconds())))
	return report, nil
}

// checkIdentities rejects pages that share an identity or an artifact path.
func checkIdentities(pages []*site.Page) error {
	ids := make(map[string]string, len(pages))
	artifacts := make(map[string]string, len(pages))
	for _, p := range pages {
		id := p.Identity()
		if prev, ok := ids[id]; ok {
			return derrors.DuplicateIdentity(id, fmt.Errorf("%w: %s (%s and %s)", ErrDuplicateIdentity, id, prev, p.URL))
		}
		ids[id] = p.URL

		ap := ArtifactPath(id)
		if prev, ok := artifacts[ap]; ok {
			return derrors.DuplicateIdentity(id, fmt.Errorf("%w: %s and %s share artifact %s", ErrDuplicateIdentity, prev, id, ap))
		}
		artifacts[ap] = id
	}
	return nil
}

// exportPages converts and writes every page on a bounded worker pool.
// Results are indexed like pages. Returns once all workers are done.
func (c *Controller) exportPages(ctx context.Context, pages []*site.Page) []pageResult {
	results := make([]pageResult, len(pages))
	workers := min(c.cfg.Concurrency, max(len(pages), 1))
	c.recorder.SetExportConcurrency(workers)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.exportPageSafe(ctx, pages[i])
			}
		}()
	}

dispatch:
	for i := range pages {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (c *Controller) exportPageSafe(ctx context.Context, p *site.Page) (res pageResult) {
	defer func() {
		if r := recover(); r != nil {
			res = pageResult{err: derrors.PageFailed(p.Identity(), fmt.Errorf("panic: %v", r))}
		}
	}()
	if err := ctx.Err(); err != nil {
		return pageResult{err: err}
	}
	entry, put, err := c.exportPage(ctx, p)
	if err != nil {
		return pageResult{err: derrors.PageFailed(p.Identity(), err)}
	}
	return pageResult{entry: entry, put: put}
}

func (c *Controller) exportPage(ctx context.Context, p *site.Page) (searchindex.Entry, storage.PutResult, error) {
	id := p.Identity()
	base := c.cfg.BaseURLFor(p.Component, p.Version)
	absURL := c.resolver.Resolve(id, id, base)

	doc := convert.Convert(p.HTML, convert.Context{PageURL: id, BaseURL: base, Resolver: c.resolver})
	doc.Identity = id

	data, err := convert.Render(doc, c.frontMatter(p, absURL))
	if err != nil {
		return searchindex.Entry{}, storage.PutResult{}, err
	}
	put, err := c.store.Put(ctx, ArtifactPath(id), data)
	if err != nil {
		return searchindex.Entry{}, storage.PutResult{}, err
	}

	content := convert.PlainText(p.HTML)
	entry := searchindex.Entry{
		ID:          id,
		URL:         absURL,
		Title:       p.Title,
		Content:     content,
		Component:   p.Component,
		Version:     p.Version,
		Language:    c.pageLanguage(p, content),
		ReadingTime: readingTime(p, content),
		LastUpdated: metaString(p, site.MetaLastUpdated),
	}
	return entry, put, nil
}

func (c *Controller) frontMatter(p *site.Page, absURL string) map[string]any {
	fields := map[string]any{
		"title": p.Title,
		"url":   absURL,
	}
	if p.Component != "" {
		fields["component"] = p.Component
	}
	if p.Version != "" {
		fields["version"] = p.Version
	}
	if p.SourcePath != "" {
		fields["source"] = p.SourcePath
	}
	if desc := p.Attr("description"); desc != "" {
		fields["description"] = desc
	}
	for _, key := range []string{site.MetaReadingTime, site.MetaWordCount, site.MetaLastUpdated} {
		if v, ok := p.Metadata[key]; ok {
			fields[key] = v
		}
	}
	return fields
}

func (c *Controller) pageLanguage(p *site.Page, content string) string {
	if lang := p.Attr("page-lang", "lang"); lang != "" {
		return strings.ToLower(lang)
	}
	if c.language == nil {
		return ""
	}
	return c.language.Detect(content)
}

func readingTime(p *site.Page, content string) int {
	if v, ok := p.Metadata[site.MetaReadingTime].(int); ok && v > 0 {
		return v
	}
	return metadata.ReadingTime(len(strings.Fields(content)), 0)
}

func metaString(p *site.Page, key string) string {
	s, _ := p.Metadata[key].(string)
	return s
}

// sidecarEntry is one page in the metadata sidecar.
type sidecarEntry struct {
	Title    string         `json:"title"`
	Artifact string         `json:"artifact"`
	Metadata map[string]any `json:"metadata"`
}

// writeMetadata writes per-page metadata keyed by identity for templates.
func (c *Controller) writeMetadata(ctx context.Context, pages []*site.Page) error {
	sidecar := make(map[string]sidecarEntry, len(pages))
	for _, p := range pages {
		md := p.Metadata
		if md == nil {
			md = map[string]any{}
		}
		sidecar[p.Identity()] = sidecarEntry{Title: p.Title, Artifact: ArtifactPath(p.Identity()), Metadata: md}
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return err
	}
	_, err = c.store.Put(ctx, c.cfg.MetadataFile, append(data, '\n'))
	return err
}

// prune deletes Markdown artifacts not produced by this run, including
// stale artifacts of pages that failed.
func (c *Controller) prune(ctx context.Context, keep map[string]bool) (int, error) {
	existing, err := c.store.List(ctx, ".md")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range existing {
		if keep[p] {
			continue
		}
		if err := c.store.Delete(ctx, p); err != nil {
			return removed, err
		}
		removed++
		slog.Debug("Pruned stale artifact", logfields.Path(p))
	}
	return removed, nil
}
