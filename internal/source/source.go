// Package source loads flow documents from disk or memory, choosing the XML
// or JSON reader by file name.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/flowscript/internal/flowjson"
	"github.com/rendis/flowscript/internal/flowxml"
	"github.com/rendis/flowscript/pkg/schema"
)

// Format is the encoding of a flow document.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// Document is a parsed flow together with the bytes it was read from.
type Document struct {
	Path   string
	Format Format
	Data   []byte
	Hash   string
	Flow   *schema.Flow
}

// FormatOf returns the format implied by a file name: JSON for ".json",
// XML for everything else.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatXML
}

// IsFlowFile reports whether a directory sweep should pick up path.
func IsFlowFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(name, ".flow-meta.xml") ||
		strings.HasSuffix(name, ".flow") ||
		strings.HasSuffix(name, ".json")
}

// Load reads and parses the flow document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeParse, "read %s", path).WithCause(err)
	}
	doc, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// Parse decodes data in the given format. An empty format means XML.
func Parse(data []byte, format Format) (*Document, error) {
	var (
		flow *schema.Flow
		err  error
	)
	switch format {
	case FormatJSON:
		flow, err = flowjson.ParseBytes(data)
	case FormatXML, "":
		format = FormatXML
		flow, err = flowxml.ParseBytes(data)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &Document{Format: format, Data: data, Hash: Hash(data), Flow: flow}, nil
}

// Hash returns the hex sha256 of a document's bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
