package config

import (
	"log/slog"
	"strconv"
	"strings"
)

// EnvExportOverride explicitly enables or disables export ("true"/"false", "1"/"0").
const EnvExportOverride = "DOCEXPORT_EXPORT"

// ciSignals are environment variables set by common CI systems.
var ciSignals = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL"}

// ActivationSource names the signal that decided whether export runs.
type ActivationSource string

const (
	SourceFlag    ActivationSource = "flag"
	SourceEnv     ActivationSource = "env"
	SourceConfig  ActivationSource = "config"
	SourceCI      ActivationSource = "ci"
	SourceDefault ActivationSource = "default"
)

// ExportConfig is the resolved, immutable export configuration for one run.
type ExportConfig struct {
	Enabled         bool
	Source          ActivationSource
	OutputDir       string
	BaseURLTemplate string
	IndexFile       string
	SQLiteIndex     string
	MetadataFile    string
	Concurrency     int
	Prune           bool
}

// BaseURLFor expands the {component} and {version} placeholders of the base URL template.
func (c ExportConfig) BaseURLFor(component, version string) string {
	return strings.NewReplacer("{component}", component, "{version}", version).Replace(c.BaseURLTemplate)
}

// ResolveExport determines whether derived-artifact export runs for this build.
// Precedence:
// 1. explicit override: flag, then DOCEXPORT_EXPORT, then export.enabled
// 2. CI signal present (unless export.auto_ci is false) => enabled
// 3. fallback: disabled
func ResolveExport(settings ExportSettings, env Env, flag *bool) ExportConfig {
	if env == nil {
		env = MapEnv(nil)
	}
	out := ExportConfig{
		OutputDir:       settings.OutputDir,
		BaseURLTemplate: settings.BaseURLTemplate,
		IndexFile:       settings.IndexFile,
		SQLiteIndex:     settings.SQLiteIndex,
		MetadataFile:    settings.MetadataFile,
		Concurrency:     settings.Concurrency,
		Prune:           settings.Prune,
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 1
	}

	ci, ciVar := detectCI(env)

	enabled, source := resolveActivation(settings, env, flag, ci)
	out.Enabled = enabled
	out.Source = source

	if ci && !enabled {
		slog.Info("CI detected but export explicitly disabled", "ci_signal", ciVar, "source", source)
	}
	slog.Debug("Resolved export activation", "enabled", enabled, "source", source, "ci", ci)
	return out
}

func resolveActivation(settings ExportSettings, env Env, flag *bool, ci bool) (bool, ActivationSource) {
	if flag != nil {
		return *flag, SourceFlag
	}
	if raw, ok := env(EnvExportOverride); ok && strings.TrimSpace(raw) != "" {
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			return v, SourceEnv
		}
		slog.Warn("Ignoring unparseable export override", "variable", EnvExportOverride, "value", raw)
	}
	if settings.Enabled != nil {
		return *settings.Enabled, SourceConfig
	}
	if ci && (settings.AutoCI == nil || *settings.AutoCI) {
		return true, SourceCI
	}
	return false, SourceDefault
}

// detectCI reports whether any CI signal is present and which variable carried it.
func detectCI(env Env) (bool, string) {
	for _, key := range ciSignals {
		raw, ok := env(key)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if key == "JENKINS_URL" {
			if raw != "" {
				return true, key
			}
			continue
		}
		if v, err := strconv.ParseBool(raw); err == nil && v {
			return true, key
		}
	}
	return false, ""
}
