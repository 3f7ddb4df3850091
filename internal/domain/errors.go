package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSource signals an explicitly requested source that is not registered.
	ErrUnknownSource = errors.New("unknown source")
	// ErrNoSources signals that resolution produced an empty source set.
	ErrNoSources = errors.New("no sources resolved")
	// ErrSourceUnavailable signals a per-source transport or payload failure.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrAllSourcesFailed signals that every resolved source failed.
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrDecomposition signals a query decomposition capability failure.
	ErrDecomposition = errors.New("query decomposition failed")
	// ErrRerank signals a rerank capability failure.
	ErrRerank = errors.New("rerank failed")
)

// UnknownSourceError wraps ErrUnknownSource with the offending name.
type UnknownSourceError struct {
	App    string
	Source string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("%s: %q is not registered for app %q", ErrUnknownSource.Error(), e.Source, e.App)
}

func (e *UnknownSourceError) Unwrap() error { return ErrUnknownSource }

// NewUnknownSource creates an unknown source error.
func NewUnknownSource(app, source string) error {
	return &UnknownSourceError{App: app, Source: source}
}

// AllSourcesFailedError wraps ErrAllSourcesFailed with one reason per failed source.
type AllSourcesFailedError struct {
	Failures []SourceFailure
}

func (e *AllSourcesFailedError) Error() string {
	reasons := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		reasons[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrAllSourcesFailed.Error(), strings.Join(reasons, "; "))
}

func (e *AllSourcesFailedError) Unwrap() error { return ErrAllSourcesFailed }

// NewAllSourcesFailed creates an all-sources-failed error.
func NewAllSourcesFailed(failures []SourceFailure) error {
	return &AllSourcesFailedError{Failures: failures}
}
