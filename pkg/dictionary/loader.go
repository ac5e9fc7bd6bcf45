// Package dictionary loads Apertium source files into in-memory documents.
package dictionary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/bastiangx/dixserve/internal/utils"
	"github.com/bastiangx/dixserve/pkg/xmlscan"
)

// DefaultMaxFileSize bounds what Load will read into memory.
const DefaultMaxFileSize = 256 << 20

var ErrUnsupported = errors.New("unsupported dictionary file")

// Document is one open buffer. Its text is replaced wholesale on update; the version counts updates so
// callers can tell stale offsets apart.
type Document struct {
	ID   string
	Path string
	Kind Kind

	mu      sync.RWMutex
	text    string
	version int
}

// NewDocument wraps text as a document with a fresh id. Kind is taken from path when path is set.
func NewDocument(path, text string) *Document {
	d := &Document{ID: uuid.NewString(), Path: path, text: text}
	if path != "" {
		d.Kind = DetectKind(path)
	}
	return d
}

// Load reads a dictionary file into a new document.
func Load(path string, maxSize int64) (*Document, error) {
	kind := DetectKind(path)
	if kind == KindUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	if err := ValidateFile(path, kind); err != nil {
		return nil, err
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	text, err := utils.ReadTextFile(path, maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	d := NewDocument(path, text)
	log.Debugf("Loaded %s %s (%d bytes) as document %s", kind, path, len(text), d.ID)
	return d, nil
}

// Text returns the current content.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Snapshot returns the content together with its version.
func (d *Document) Snapshot() (string, int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text, d.version
}

// Update replaces the content and returns the new version.
func (d *Document) Update(text string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.version++
	return d.version
}

// Version returns the number of the current content.
func (d *Document) Version() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Rebase sets the current version, so a document reopened under an old id keeps counting from where the
// old one stopped.
func (d *Document) Rebase(version int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
}

// Cursor returns a scanner over the current content. It stays valid for that content only.
func (d *Document) Cursor(window int) *xmlscan.Scanner {
	return xmlscan.NewWithWindow(d.Text(), window)
}

// Barrier is the outer container entry searches stop at for this kind of file.
func (d *Document) Barrier() string {
	if info, ok := supportedKinds[d.Kind]; ok {
		return info.Barrier
	}
	return ""
}

// FileInfo describes a dictionary file found by ListFiles.
type FileInfo struct {
	Path string
	Kind Kind
	Size int64
}

// ListFiles returns the dictionary files directly inside dir, sorted by name.
func ListFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !IsDictionaryFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Warnf("Skipping %s: %v", e.Name(), err)
			continue
		}
		files = append(files, FileInfo{
			Path: filepath.Join(dir, e.Name()),
			Kind: DetectKind(e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}
