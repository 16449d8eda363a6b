package lm

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
)

//go:embed models/default.arpa
var defaultModel []byte

// Source names of the built-in loaders.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Source produces a model table.
type Source interface {
	// Name identifies the source in logs and health output.
	Name() string
	Load(ctx context.Context) (*Table, error)
}

// EmbeddedSource serves the small English model compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Name() string { return SourceEmbedded }

func (EmbeddedSource) Load(_ context.Context) (*Table, error) {
	t, err := ParseARPA(bytes.NewReader(defaultModel))
	if err != nil {
		return nil, fmt.Errorf("embedded model: %w", err)
	}
	return t, nil
}

// FileSource reads an ARPA file from disk on every Load.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return SourceFile }

func (s FileSource) Load(_ context.Context) (*Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	t, err := ParseARPA(f)
	if err != nil {
		return nil, fmt.Errorf("model file %s: %w", s.Path, err)
	}
	return t, nil
}
