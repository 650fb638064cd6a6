// Package storage persists button maps as files on an afero filesystem.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Alia5/padmap/buttonmap"
	"github.com/Alia5/padmap/device"
)

const tempSuffix = ".tmp"

var (
	// ErrResourceNotFound is returned by Load when nothing has been saved yet.
	ErrResourceNotFound  = fmt.Errorf("%w: %w", buttonmap.ErrNotFound, fs.ErrNotExist)
	ErrUnsupportedFormat = errors.New("unsupported button map format")
	ErrCorrupt           = errors.New("corrupt button map")
)

// Format selects the file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatOf returns the format implied by a resource path's extension.
func FormatOf(resourcePath string) (Format, error) {
	return ParseFormat(filepath.Ext(resourcePath))
}

func (f Format) marshal(doc document) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		return toml.Marshal(doc)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

func (f Format) unmarshal(data []byte, doc *document) error {
	switch f {
	case FormatJSON:
		return json.Unmarshal(data, doc)
	case FormatYAML:
		return yaml.Unmarshal(data, doc)
	case FormatTOML:
		return toml.Unmarshal(data, doc)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}

// FileBackend implements buttonmap.Backend with one file per resource path.
// Saves write a temporary file and rename it over the old one, so a failed
// save leaves the previous content in place.
type FileBackend struct {
	fs     afero.Fs
	header *deviceHeader
	logger *slog.Logger
}

// NewFileBackend returns a backend on fsys. A nil logger uses slog.Default.
func NewFileBackend(fsys afero.Fs, logger *slog.Logger) *FileBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileBackend{fs: fsys, logger: logger}
}

// ForDevice returns a backend on the same filesystem that records info in
// the header of every file it saves.
func (b *FileBackend) ForDevice(info device.Info) *FileBackend {
	return &FileBackend{fs: b.fs, header: newHeader(info), logger: b.logger}
}

func (b *FileBackend) Load(resourcePath string) (buttonmap.ButtonMap, error) {
	format, err := FormatOf(resourcePath)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(b.fs, resourcePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", resourcePath, ErrResourceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resourcePath, err)
	}

	var doc document
	if err := format.unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, resourcePath, err)
	}
	m, err := decodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resourcePath, err)
	}
	b.logger.Debug("loaded button map", "path", resourcePath, "profiles", len(m))
	return m, nil
}

func (b *FileBackend) Save(resourcePath string, m buttonmap.ButtonMap) error {
	format, err := FormatOf(resourcePath)
	if err != nil {
		return err
	}
	doc, err := encodeDocument(m, b.header)
	if err != nil {
		return err
	}
	data, err := format.marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", resourcePath, err)
	}

	if dir := filepath.Dir(resourcePath); dir != "." {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := b.atomicWrite(resourcePath, data); err != nil {
		return fmt.Errorf("write %s: %w", resourcePath, err)
	}
	b.logger.Debug("saved button map", "path", resourcePath, "profiles", len(doc.Controllers))
	return nil
}

func (b *FileBackend) atomicWrite(path string, data []byte) error {
	tempPath := path + tempSuffix
	_ = b.fs.Remove(tempPath)

	f, err := b.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = b.fs.Remove(tempPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = b.fs.Remove(tempPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = b.fs.Remove(tempPath)
		return err
	}
	if err := b.fs.Rename(tempPath, path); err != nil {
		_ = b.fs.Remove(tempPath)
		return err
	}
	return nil
}

// ResourcePath derives the file a device's button map is stored in:
// <provider>/<name>_v<vid>_p<pid>_<buttons>b_<hats>h_<axes>a.<format>.
// The vendor/product part is omitted when unknown.
func ResourcePath(info device.Info, format Format) string {
	name := device.SanitizeName(info.Name)
	if name == "" {
		name = "unknown"
	}
	var b strings.Builder
	b.WriteString(name)
	if info.VendorID != 0 || info.ProductID != 0 {
		fmt.Fprintf(&b, "_v%04X_p%04X", info.VendorID, info.ProductID)
	}
	fmt.Fprintf(&b, "_%db_%dh_%da.%s", info.ButtonCount, info.HatCount, info.AxisCount, format)

	provider := device.SanitizeName(info.Provider)
	if provider == "" {
		return b.String()
	}
	return filepath.Join(provider, b.String())
}
