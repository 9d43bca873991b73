package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Phase", KeyPhase, "annotating", Phase("annotating")},
		{"Page", KeyPage, "/guide/", Page("/guide/")},
		{"Component", KeyComponent, "ROOT", Component("ROOT")},
		{"Version", KeyVersion, "2.0", Version("2.0")},
		{"Source", KeySource, "ci", Source("ci")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestErrorHelper(t *testing.T) {
	if got := Error(nil); got.Value.String() != "" {
		t.Fatalf("nil error should render empty, got %q", got.Value.String())
	}
	if got := Error(errors.New("boom")); got.Key != KeyError || got.Value.String() != "boom" {
		t.Fatalf("unexpected attr %v", got)
	}
	if got := Count(3); got.Value.Int64() != 3 {
		t.Fatalf("unexpected count %v", got)
	}
}
