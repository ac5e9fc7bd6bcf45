package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Kind is the type of an Apertium source file, detected from its name.
type Kind int

const (
	KindUnknown  Kind = iota
	KindMonodix       // monolingual dictionary, apertium-nob.nob.dix
	KindBidix         // bilingual dictionary, apertium-nob-nno.nob-nno.dix
	KindMetadix       // dictionary with metaparadigms, .metadix
	KindTransfer      // structural transfer rules, .t1x to .t4x
	KindLexSel        // lexical selection rules, .lrx
)

// KindInfo contains metadata about a dictionary file kind
type KindInfo struct {
	Kind        Kind
	Name        string
	Description string
	Extensions  []string
	Root        string // expected root element
	Barrier     string // outer container that ends upward entry searches
	MinSize     int64
}

var supportedKinds = map[Kind]KindInfo{
	KindMonodix: {
		Kind:        KindMonodix,
		Name:        "monodix",
		Description: "Monolingual dictionary",
		Extensions:  []string{".dix"},
		Root:        "dictionary",
		Barrier:     "section",
		MinSize:     len64("<dictionary/>"),
	},
	KindBidix: {
		Kind:        KindBidix,
		Name:        "bidix",
		Description: "Bilingual dictionary",
		Extensions:  []string{".dix"},
		Root:        "dictionary",
		Barrier:     "section",
		MinSize:     len64("<dictionary/>"),
	},
	KindMetadix: {
		Kind:        KindMetadix,
		Name:        "metadix",
		Description: "Metaparadigm dictionary",
		Extensions:  []string{".metadix"},
		Root:        "dictionary",
		Barrier:     "section",
		MinSize:     len64("<dictionary/>"),
	},
	KindTransfer: {
		Kind:        KindTransfer,
		Name:        "transfer",
		Description: "Structural transfer rules",
		Extensions:  []string{".t1x", ".t2x", ".t3x", ".t4x"},
		Root:        "",
		Barrier:     "section-rules",
		MinSize:     len64("<postchunk/>"),
	},
	KindLexSel: {
		Kind:        KindLexSel,
		Name:        "lrx",
		Description: "Lexical selection rules",
		Extensions:  []string{".lrx"},
		Root:        "rules",
		Barrier:     "rules",
		MinSize:     len64("<rules/>"),
	},
}

func len64(s string) int64 {
	return int64(len(s))
}

func (k Kind) String() string {
	if info, ok := supportedKinds[k]; ok {
		return info.Name
	}
	return "unknown"
}

// DetectKind picks the kind of a file from its name alone. A .dix file is bilingual when the part
// before the extension names a language pair, as in apertium-nob-nno.nob-nno.dix.
func DetectKind(filename string) Kind {
	base := strings.ToLower(filepath.Base(filename))
	ext := filepath.Ext(base)
	switch ext {
	case ".dix":
		stem := strings.TrimSuffix(base, ext)
		pair := stem[strings.LastIndexByte(stem, '.')+1:]
		if strings.Contains(stem, ".") && strings.Contains(pair, "-") {
			return KindBidix
		}
		return KindMonodix
	case ".metadix":
		return KindMetadix
	case ".t1x", ".t2x", ".t3x", ".t4x":
		return KindTransfer
	case ".lrx":
		return KindLexSel
	}
	return KindUnknown
}

// ValidateFile checks that a file exists, has an extension of kind, and is big enough to hold the
// smallest document of that kind.
func ValidateFile(filename string, kind Kind) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	info, ok := supportedKinds[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
	if fileInfo.Size() < info.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for a %s (minimum: %d bytes)",
			filename, fileInfo.Size(), info.Description, info.MinSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for _, valid := range info.Extensions {
		if ext == valid {
			log.Debugf("File %s validated as %s", filename, info.Name)
			return nil
		}
	}
	return fmt.Errorf("file %s has invalid extension %s for %s (expected: %v)",
		filename, ext, info.Description, info.Extensions)
}

// GetKindInfo returns information about a specific kind
func GetKindInfo(kind Kind) (KindInfo, bool) {
	info, ok := supportedKinds[kind]
	return info, ok
}

// IsDictionaryFile reports whether a file name has one of the supported extensions.
func IsDictionaryFile(filename string) bool {
	return DetectKind(filename) != KindUnknown
}
