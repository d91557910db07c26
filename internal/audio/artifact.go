package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Artifact is a temporary file-backed audio object. Release removes it;
// calling Release more than once is a no-op.
type Artifact struct {
	path     string
	mu       sync.Mutex
	released bool
}

// NewArtifact writes data to a new temp file in dir
func NewArtifact(dir, pattern string, data []byte) (*Artifact, error) {
	a, f, err := CreateArtifact(dir, pattern)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		a.Release()
		return nil, fmt.Errorf("failed to write audio artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		a.Release()
		return nil, fmt.Errorf("failed to close audio artifact: %w", err)
	}
	return a, nil
}

// CreateArtifact creates an empty temp file and returns it open for writing.
// The caller closes the file; the artifact still has to be released.
func CreateArtifact(dir, pattern string) (*Artifact, *os.File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create audio artifact: %w", err)
	}
	return &Artifact{path: f.Name()}, f, nil
}

// Path returns the file location
func (a *Artifact) Path() string {
	return a.path
}

// ReadAll returns the artifact contents
func (a *Artifact) ReadAll() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil, fmt.Errorf("audio artifact %s already released", a.path)
	}
	return os.ReadFile(a.path)
}

// Release deletes the backing file
func (a *Artifact) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true
	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove audio artifact: %w", err)
	}
	return nil
}

// Scope collects the artifacts of one cycle so they can be released together
type Scope struct {
	mu        sync.Mutex
	artifacts []*Artifact
}

// Track adds an artifact to the scope; nil is ignored
func (s *Scope) Track(a *Artifact) {
	if a == nil {
		return
	}
	s.mu.Lock()
	s.artifacts = append(s.artifacts, a)
	s.mu.Unlock()
}

// Len returns the number of tracked artifacts
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}

// ReleaseAll releases every tracked artifact and reports all failures
func (s *Scope) ReleaseAll() error {
	s.mu.Lock()
	artifacts := s.artifacts
	s.artifacts = nil
	s.mu.Unlock()

	var errs []error
	for _, a := range artifacts {
		if err := a.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
