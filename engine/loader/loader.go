// Package loader supplies the coverage dataset a grid is mounted from: a JSON
// document on disk, the dataset embedded in the binary, or the vehicle graph.
package loader

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/WessleyAI/wessley-coverage/engine/domain"
	"github.com/WessleyAI/wessley-coverage/pkg/fn"
)

//go:embed coverage.json
var defaultDataset []byte

// Source produces a dataset.
type Source interface {
	Load(ctx context.Context) (domain.Dataset, error)
}

// Decode reads a JSON coverage document. Unknown fields are rejected.
func Decode(r io.Reader) (domain.Dataset, error) {
	var d domain.Dataset
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return domain.Dataset{}, fmt.Errorf("decode coverage: %w", err)
	}
	return d, nil
}

// Default returns the dataset embedded in the binary.
func Default() (domain.Dataset, error) {
	return Decode(bytes.NewReader(defaultDataset))
}

// LoadFile reads a coverage document from path. An empty path loads the
// embedded dataset.
func LoadFile(path string) (domain.Dataset, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("open coverage file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// FileSource loads a JSON document on every call.
type FileSource struct {
	Path string
}

func (s FileSource) Load(context.Context) (domain.Dataset, error) {
	return LoadFile(s.Path)
}

// Strict wraps a source with domain.ValidateDataset.
func Strict(src Source) Source { return strictSource{src} }

type strictSource struct{ Source }

func (s strictSource) Load(ctx context.Context) (domain.Dataset, error) {
	d, err := s.Source.Load(ctx)
	if err != nil {
		return d, err
	}
	if err := domain.ValidateDataset(d); err != nil {
		return domain.Dataset{}, err
	}
	return d, nil
}

// Retrying retries src with backoff. Useful for sources backed by a service
// that may still be starting.
func Retrying(src Source, opts fn.RetryOpts) Source { return retryingSource{src, opts} }

type retryingSource struct {
	Source
	opts fn.RetryOpts
}

func (s retryingSource) Load(ctx context.Context) (domain.Dataset, error) {
	return fn.Retry(ctx, s.opts, s.Source.Load)
}
