package metadata

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/docexport/internal/logfields"
	"git.home.luguber.info/inful/docexport/internal/site"
)

// Provenance answers when a page's source last changed.
type Provenance interface {
	LastUpdated(ctx context.Context, p *site.Page) (time.Time, bool, error)
}

// Chain asks each provenance in order and returns the first answer.
// Failing sources are skipped.
type Chain []Provenance

func (c Chain) LastUpdated(ctx context.Context, p *site.Page) (time.Time, bool, error) {
	var errs []error
	for _, prov := range c {
		if prov == nil {
			continue
		}
		t, ok, err := prov.LastUpdated(ctx, p)
		if err != nil {
			slog.Debug("Provenance source failed", logfields.Page(p.Identity()), logfields.Error(err))
			errs = append(errs, err)
			continue
		}
		if ok {
			return t, true, nil
		}
	}
	return time.Time{}, false, errors.Join(errs...)
}

// Front matter attributes consulted for an explicit date, in order.
var lastUpdatedAttributes = []string{"page-last-updated", "lastmod"}

var dateLayouts = []string{time.RFC3339, time.DateOnly, time.DateTime}

// FrontMatterProvenance reads an explicit date from page attributes.
type FrontMatterProvenance struct{}

func (FrontMatterProvenance) LastUpdated(_ context.Context, p *site.Page) (time.Time, bool, error) {
	raw := p.Attr(lastUpdatedAttributes...)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, ok := ParseDate(raw); ok {
		return t, true, nil
	}
	return time.Time{}, false, &InvalidDateError{Page: p.Identity(), Value: raw}
}

// ParseDate accepts RFC3339, date-only and "date time" values.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InvalidDateError reports an unparseable front matter date.
type InvalidDateError struct {
	Page  string
	Value string
}

func (e *InvalidDateError) Error() string {
	return "invalid last-updated date " + `"` + e.Value + `"` + " on " + e.Page
}
