package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// encodeSnapshots serializes a snapshot set as xz-compressed JSON.
func encodeSnapshots(snapshots map[string][]byte) ([]byte, error) {
	raw, err := json.Marshal(snapshots)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshots: %w", err)
	}

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create xz writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compress snapshots: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshots: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeSnapshots reverses encodeSnapshots.
func decodeSnapshots(blob []byte) (map[string][]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("create xz reader: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshots: %w", err)
	}

	snapshots := map[string][]byte{}
	if err := json.Unmarshal(raw, &snapshots); err != nil {
		return nil, fmt.Errorf("unmarshal snapshots: %w", err)
	}
	return snapshots, nil
}
