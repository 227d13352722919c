package datasource

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Reality2byte/nanoc/internal/ir"
)

var (
	bom          = []byte("\xef\xbb\xbf")
	fenceLF      = []byte("---\n")
	fenceCRLF    = []byte("---\r\n")
	closingMarks = [][]byte{[]byte("\n---\r\n"), []byte("\n---\n"), []byte("\n---")}
)

// splitFrontMatter separates a leading YAML front matter block from the
// content. Documents without one yield empty attributes and data
// unchanged. Invalid YAML is an error.
func splitFrontMatter(data []byte) (ir.IRObject, []byte, error) {
	trimmed := bytes.TrimPrefix(data, bom)
	var rest []byte
	switch {
	case bytes.HasPrefix(trimmed, fenceLF):
		rest = trimmed[len(fenceLF):]
	case bytes.HasPrefix(trimmed, fenceCRLF):
		rest = trimmed[len(fenceCRLF):]
	default:
		return ir.IRObject{}, data, nil
	}

	end, markLen := -1, 0
	if bytes.HasPrefix(rest, fenceLF) || bytes.HasPrefix(rest, fenceCRLF) || bytes.Equal(rest, []byte("---")) {
		end, markLen = 0, 3
	}
	for _, m := range closingMarks {
		if end >= 0 {
			break
		}
		if i := bytes.Index(rest, m); i >= 0 {
			end, markLen = i, len(m)
		}
	}
	if end < 0 {
		return ir.IRObject{}, data, nil
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return nil, nil, fmt.Errorf("front matter: %w", err)
	}
	attrs, err := ir.ObjectFromGo(fm)
	if err != nil {
		return nil, nil, fmt.Errorf("front matter: %w", err)
	}
	body := bytes.TrimLeft(rest[end+markLen:], "\r\n")
	return attrs, body, nil
}

// configObject converts a decoded configuration document.
func configObject(m map[string]any) (ir.IRObject, error) {
	return ir.ObjectFromGo(m)
}
