package schema

import (
	"errors"
	"fmt"
)

// ErrConfigLoad is matched by every error returned while loading or
// validating a schema configuration.
var ErrConfigLoad = errors.New("resumex: schema configuration could not be loaded")

// ConfigLoadError describes why a configuration was rejected.
type ConfigLoadError struct {
	Path string // source file, empty for in-memory configs
	Err  error
}

func (e *ConfigLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load schema %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("load schema: %v", e.Err)
}

func (e *ConfigLoadError) Unwrap() error { return e.Err }

func (e *ConfigLoadError) Is(target error) bool { return target == ErrConfigLoad }

func loadError(path string, format string, args ...any) error {
	return &ConfigLoadError{Path: path, Err: fmt.Errorf(format, args...)}
}
