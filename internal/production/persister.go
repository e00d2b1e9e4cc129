package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown snapshot format")

// Format is a snapshot encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Encode writes snap in format.
func Encode(w io.Writer, snap GraphSnapshot, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
}

// Decode reads a snapshot in format.
func Decode(r io.Reader, format Format) (GraphSnapshot, error) {
	var snap GraphSnapshot
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return GraphSnapshot{}, fmt.Errorf("json unmarshal: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			return GraphSnapshot{}, fmt.Errorf("yaml unmarshal: %w", err)
		}
	default:
		return GraphSnapshot{}, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	return snap, nil
}

// FilePersister stores one snapshot file per graph id in a directory.
// Writes are atomic: a reader never sees a partial file.
type FilePersister struct {
	dir    string
	format Format
	log    zerolog.Logger
}

// NewFilePersister creates the directory if needed.
func NewFilePersister(dir string, format Format) (*FilePersister, error) {
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FilePersister{
		dir:    dir,
		format: format,
		log:    log.Logger.With().Str("component", "persister").Logger(),
	}, nil
}

// Path returns the file used for id.
func (p *FilePersister) Path(id string) string {
	return filepath.Join(p.dir, id+"."+string(p.format))
}

func (p *FilePersister) Save(ctx context.Context, snap GraphSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteFile(p.Path(snap.ID), snap, p.format, p.log)
}

func (p *FilePersister) Load(ctx context.Context, id string) (GraphSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return GraphSnapshot{}, err
	}
	fn := p.Path(id)
	f, err := os.Open(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return GraphSnapshot{}, fmt.Errorf("graph %q: %w", id, os.ErrNotExist)
		}
		return GraphSnapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}
	defer f.Close()

	snap, err := Decode(f, p.format)
	if err != nil {
		return GraphSnapshot{}, err
	}
	snap.ID = id
	return snap, nil
}

// WriteFile atomically replaces path with snap encoded in format.
func WriteFile(path string, snap GraphSnapshot, format Format, l zerolog.Logger) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending snapshot file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			l.Debug().Err(err).Str("path", path).Msg("cleanup pending snapshot file")
		}
	}()

	if err := Encode(pending, snap, format); err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	l.Debug().Str("path", path).Str("graph", snap.ID).Msg("snapshot written")
	return nil
}
