package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocExportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DocExportError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.err.Error())
		})
	}
}

func TestDocExportError_WithContext(t *testing.T) {
	err := New(CategoryIntegrity, SeverityFatal, "duplicate").
		WithContext("identity", "/guide/").
		WithContext("count", 2)

	require.NotNil(t, err.Context)
	assert.Equal(t, "/guide/", err.Context["identity"])
	assert.Equal(t, 2, err.Context["count"])
}

func TestIsCategory_ThroughWrapping(t *testing.T) {
	sentinel := stdErrors.New("dup")
	inner := DuplicateIdentity("/a/", sentinel)
	outer := fmt.Errorf("export: %w", inner)

	assert.True(t, IsCategory(outer, CategoryIntegrity))
	assert.False(t, IsCategory(outer, CategoryConfig))
	assert.True(t, IsFatal(outer))
	assert.ErrorIs(t, outer, sentinel)
	assert.False(t, IsCategory(fmt.Errorf("plain"), CategoryIntegrity))
	assert.Equal(t, CategoryInternal, GetCategory(fmt.Errorf("plain")))
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, a.ExitCodeFor(nil))
	assert.Equal(t, 1, a.ExitCodeFor(fmt.Errorf("plain")))
	assert.Equal(t, 7, a.ExitCodeFor(ConfigNotFound("x.yaml")))
	assert.Equal(t, 9, a.ExitCodeFor(DuplicateIdentity("/a/", nil)))
	assert.Equal(t, 11, a.ExitCodeFor(OutputUnwritable("/ro", nil)))
	assert.Equal(t, 12, a.ExitCodeFor(PhaseOrder("done", "annotating", nil)))
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)
	err := OutputUnwritable("/ro", fmt.Errorf("permission denied"))

	assert.Equal(t, "filesystem: output directory is not writable", quiet.FormatError(err))
	assert.Contains(t, verbose.FormatError(err), "permission denied")
	assert.Equal(t, "configuration file not found", quiet.FormatError(ConfigNotFound("c.yaml")))
}
