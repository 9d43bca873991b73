package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *DocExportError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *DocExportError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration invalid").
		WithContext("path", path)
}

// Export errors

func OutputUnwritable(dir string, cause error) *DocExportError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "output directory is not writable").
		WithContext("output_dir", dir)
}

func DuplicateIdentity(identity string, cause error) *DocExportError {
	return Wrap(cause, CategoryIntegrity, SeverityFatal, "duplicate page identity").
		WithContext("identity", identity)
}

func PageFailed(identity string, cause error) *DocExportError {
	return Wrap(cause, CategoryConversion, SeverityError, "page export failed").
		WithContext("identity", identity)
}

// Pipeline errors

func PhaseOrder(from, to string, cause error) *DocExportError {
	return Wrap(cause, CategoryPipeline, SeverityFatal, "pipeline phase order violated").
		WithContext("from", from).
		WithContext("to", to)
}
