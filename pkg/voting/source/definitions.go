package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"mercator-hq/ldatranslate/pkg/voting/registry"
)

var (
	// ErrEmptySource is returned for a definition without voting text.
	ErrEmptySource = errors.New("definition has no source")

	// ErrNotCloned is returned when a Git repository is used before Clone.
	ErrNotCloned = errors.New("repository not initialized, call Clone() first")
)

// Document is the YAML layout of a voting definition file.
//
//	votings:
//	  - source: |
//	      declare MyVote { aggregate(let s = sumOf): score }
//	    alias: my_vote
type Document struct {
	Votings []Definition `yaml:"votings"`
}

// Definition is a single declare block with an optional second name.
type Definition struct {
	// Source is the declare block.
	Source string `yaml:"source"`

	// Alias binds the declared voting under an additional name.
	Alias string `yaml:"alias,omitempty"`
}

// DefinitionError locates a failed definition.
type DefinitionError struct {
	// File is the definition file, empty for in-memory documents
	File string

	// Index is the zero-based position of the entry in the file; -1 when
	// the file itself could not be read or decoded
	Index int

	// Err is the underlying decode or registration error
	Err error
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	file := e.File
	if file == "" {
		file = "<memory>"
	}
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", file, e.Err)
	}
	return fmt.Sprintf("%s: voting #%d: %v", file, e.Index, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// ParseDocument decodes a definition file. Unknown keys are rejected and an
// empty document holds no votings.
func ParseDocument(data []byte, file string) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &DefinitionError{File: file, Index: -1, Err: err}
	}
	return &doc, nil
}

// Register adds every definition of doc to reg in order, stopping at the
// first failure. Entries registered before the failure stay in reg.
func (doc *Document) Register(reg *registry.Registry, file string) error {
	for i, def := range doc.Votings {
		if err := def.register(reg); err != nil {
			return &DefinitionError{File: file, Index: i, Err: err}
		}
	}
	return nil
}

func (def Definition) register(reg *registry.Registry) error {
	if def.Source == "" {
		return ErrEmptySource
	}
	if def.Alias != "" {
		return reg.RegisterAt(def.Alias, def.Source)
	}
	return reg.Register(def.Source)
}
