package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/i474232898/weather-station-cache/internal/weather"
)

// IndexFile is the name of the station index inside the output directory.
const IndexFile = "index.json"

// JSONPublisher writes station payloads and the index as JSON files under a
// single directory. Every file is replaced atomically so a static host never
// serves a half-written document.
type JSONPublisher struct {
	dir string
}

// NewJSONPublisher creates a publisher writing into dir.
func NewJSONPublisher(dir string) *JSONPublisher {
	return &JSONPublisher{dir: dir}
}

// Dir returns the output directory.
func (p *JSONPublisher) Dir() string {
	return p.dir
}

// PublishStation writes <station>.json and returns its path.
func (p *JSONPublisher) PublishStation(_ context.Context, payload weather.Payload) (string, error) {
	if payload.Station == "" || filepath.Base(payload.Station) != payload.Station {
		return "", fmt.Errorf("invalid station id %q", payload.Station)
	}
	return p.write(payload.Station+".json", payload)
}

// PublishIndex writes index.json and returns its path.
func (p *JSONPublisher) PublishIndex(_ context.Context, index weather.Index) (string, error) {
	if index.Stations == nil {
		index.Stations = []weather.IndexEntry{}
	}
	return p.write(IndexFile, index)
}

func (p *JSONPublisher) write(name string, v any) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", p.dir, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Station names are CJK; keep them and any '&' readable.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(p.dir, name)
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
