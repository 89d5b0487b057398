// Package preset serializes compensators to and from versioned JSON
// documents, and carries the named starter cascades.
package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/cascade"
)

// Version is the preset document format this build reads and writes.
const Version = 1

var (
	// ErrUnsupportedVersion rejects documents from an unknown format
	// version.
	ErrUnsupportedVersion = errors.New("preset: unsupported version")
	// ErrSchema rejects documents that are not valid preset JSON.
	ErrSchema = errors.New("preset: malformed document")
)

type blockOut struct {
	Type    string          `json:"type"`
	Params  json.RawMessage `json:"params"`
	Enabled bool            `json:"enabled"`
}

type docOut struct {
	Version int        `json:"version"`
	Blocks  []blockOut `json:"blocks"`
}

// orderedParams emits the instance's parameters as a JSON object in
// schema order, so serialized output is deterministic and diffs line up
// with the display order.
func orderedParams(in *block.Instance) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ps := range in.Block.Schema() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(ps.Name))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(in.Params[ps.Name], 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Marshal renders the compensator as a pretty-printed preset document,
// blocks in cascade order.
func Marshal(c *cascade.Compensator) ([]byte, error) {
	doc := docOut{Version: Version, Blocks: make([]blockOut, 0, c.Len())}
	for _, in := range c.Blocks() {
		doc.Blocks = append(doc.Blocks, blockOut{
			Type:    in.Type(),
			Params:  orderedParams(in),
			Enabled: in.Enabled,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

type blockIn struct {
	Type    string             `json:"type"`
	Params  map[string]float64 `json:"params"`
	Enabled *bool              `json:"enabled"`
}

type docIn struct {
	Version *int      `json:"version"`
	Blocks  []blockIn `json:"blocks"`
}

// Unmarshal parses and validates a preset document against reg, returning
// block instances in document order. Any failure returns nil blocks: no
// partially constructed cascade ever escapes. Unknown types, undeclared
// parameter names, and out-of-bound values are rejected with the block
// package's errors, naming the offending block.
func Unmarshal(data []byte, reg *block.Registry) ([]*block.Instance, error) {
	var doc docIn
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if doc.Version == nil {
		return nil, fmt.Errorf("%w: missing version field", ErrSchema)
	}
	if *doc.Version != Version {
		return nil, fmt.Errorf("%w: %d (this build reads version %d)", ErrUnsupportedVersion, *doc.Version, Version)
	}
	blocks := make([]*block.Instance, 0, len(doc.Blocks))
	for i, b := range doc.Blocks {
		in, err := reg.Instantiate(b.Type, b.Params)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		if b.Enabled != nil {
			in.Enabled = *b.Enabled
		}
		blocks = append(blocks, in)
	}
	return blocks, nil
}
