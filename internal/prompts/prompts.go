// Package prompts manages the user's snippet list: an ordered collection of
// named text prompts persisted as JSON, compatible with the
// ~/.config/shiftprompt/prompts.json layout.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Prompt is one stored snippet.
type Prompt struct {
	// Name is the title shown in the picker.
	Name string `json:"name"`

	// Content is the text injected on selection.
	Content string `json:"content"`
}

// Store errors.
var (
	// ErrNotFound is returned when an index is out of range.
	ErrNotFound = errors.New("prompt not found")

	// ErrEmptyPrompt is returned when a prompt has an empty name or content.
	ErrEmptyPrompt = errors.New("prompt name and content must not be empty")
)

// defaultPrompts seeds a fresh store so the picker is never empty on first
// run.
var defaultPrompts = []Prompt{
	{Name: "Polite Email Closing", Content: "Kind regards,\n\n"},
	{Name: "Quick Question", Content: "Hi, I have a quick question: "},
}

// Store is a JSON-file-backed prompt list. All methods are safe for
// concurrent use; the file is rewritten atomically on every mutation.
type Store struct {
	mu      sync.RWMutex
	path    string
	prompts []Prompt
}

// Open loads the store at path, seeding it with default prompts when the
// file does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	if err := s.Reload(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		s.mu.Lock()
		s.prompts = append([]Prompt(nil), defaultPrompts...)
		s.mu.Unlock()
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("seed prompts: %w", err)
		}
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file, validating it against the prompts
// schema. On validation failure the in-memory list is left untouched.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read prompts: %w", err)
	}

	if err := validatePrompts(data); err != nil {
		return fmt.Errorf("validate prompts: %w", err)
	}

	var loaded []Prompt
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse prompts: %w", err)
	}

	s.mu.Lock()
	s.prompts = loaded
	s.mu.Unlock()
	return nil
}

// List returns a copy of the prompt list in stored order.
func (s *Store) List() []Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Prompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Get returns the prompt at index.
func (s *Store) Get(index int) (Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.prompts) {
		return Prompt{}, ErrNotFound
	}
	return s.prompts[index], nil
}

// Add appends a prompt and persists the list.
func (s *Store) Add(p Prompt) error {
	if p.Name == "" || p.Content == "" {
		return ErrEmptyPrompt
	}

	s.mu.Lock()
	s.prompts = append(s.prompts, p)
	s.mu.Unlock()
	return s.save()
}

// Update replaces the prompt at index and persists the list.
func (s *Store) Update(index int, p Prompt) error {
	if p.Name == "" || p.Content == "" {
		return ErrEmptyPrompt
	}

	s.mu.Lock()
	if index < 0 || index >= len(s.prompts) {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.prompts[index] = p
	s.mu.Unlock()
	return s.save()
}

// Delete removes the prompt at index and persists the list.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.prompts) {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.prompts = append(s.prompts[:index], s.prompts[index+1:]...)
	s.mu.Unlock()
	return s.save()
}

// save writes the list atomically: temp file in the same directory, then
// rename.
func (s *Store) save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.prompts, "", "    ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode prompts: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create prompts directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prompts-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write prompts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod prompts: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace prompts: %w", err)
	}
	return nil
}
