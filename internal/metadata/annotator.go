// Package metadata derives per-page metadata (reading time, word count,
// last updated) from rendered pages.
package metadata

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docexport/internal/config"
	"git.home.luguber.info/inful/docexport/internal/convert"
	"git.home.luguber.info/inful/docexport/internal/logfields"
	"git.home.luguber.info/inful/docexport/internal/site"
)

// Metadata is the computed metadata of one page.
type Metadata struct {
	ReadingTimeMinutes int
	WordCount          int
	LastUpdated        *time.Time
}

// Annotator computes Metadata and stores it on the page.
type Annotator struct {
	wordsPerMinute int
	provenance     Provenance
}

// NewAnnotator creates an annotator. A nil provenance disables last-updated
// detection; a non-positive rate falls back to the default.
func NewAnnotator(wordsPerMinute int, provenance Provenance) *Annotator {
	if wordsPerMinute <= 0 {
		wordsPerMinute = config.DefaultWordsPerMinute
	}
	return &Annotator{wordsPerMinute: wordsPerMinute, provenance: provenance}
}

// Annotate computes the page's metadata and writes it to p.Metadata. Only
// p is touched.
func (a *Annotator) Annotate(ctx context.Context, p *site.Page) Metadata {
	words := convert.WordCount(p.HTML)
	md := Metadata{
		WordCount:          words,
		ReadingTimeMinutes: ReadingTime(words, a.wordsPerMinute),
	}

	if a.provenance != nil {
		t, ok, err := a.provenance.LastUpdated(ctx, p)
		if err != nil {
			slog.Warn("Last-updated lookup failed", logfields.Page(p.Identity()), logfields.Source(p.SourcePath), logfields.Error(err))
		}
		if ok {
			utc := t.UTC()
			md.LastUpdated = &utc
		}
	}

	p.SetMeta(site.MetaReadingTime, md.ReadingTimeMinutes)
	p.SetMeta(site.MetaWordCount, md.WordCount)
	if md.LastUpdated != nil {
		p.SetMeta(site.MetaLastUpdated, md.LastUpdated.Format(time.RFC3339))
	} else {
		delete(p.Metadata, site.MetaLastUpdated)
	}
	return md
}

// ReadingTime returns whole minutes to read words at wpm, never below one.
func ReadingTime(words, wpm int) int {
	if wpm <= 0 {
		wpm = config.DefaultWordsPerMinute
	}
	return max(1, (words+wpm-1)/wpm)
}
