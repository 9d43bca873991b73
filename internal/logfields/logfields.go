package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPhase      = "phase"
	KeyPage       = "page"
	KeyComponent  = "component"
	KeyVersion    = "version"
	KeySource     = "source"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Page(identity string) slog.Attr  { return slog.String(KeyPage, identity) }
func Component(c string) slog.Attr    { return slog.String(KeyComponent, c) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
