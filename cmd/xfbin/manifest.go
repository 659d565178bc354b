package main

import (
	"encoding/json"
	"os"

	"golang.org/x/xerrors"
)

// manifest is the JSON sidecar written by unpack and consumed by repack. It
// carries enough per-chunk struct_info to splice edited payloads back into
// their original page/chunk slot without re-deriving the page's index
// tables from scratch.
type manifest struct {
	Source  string           `json:"source"`
	Version uint16           `json:"version"`
	Entries []manifestEntry  `json:"entries"`
}

type manifestEntry struct {
	PageIndex      int              `json:"page_index"`
	ChunkIndex     int              `json:"chunk_index"`
	Kind           string           `json:"kind"` // "binary" or "unknown"
	BinaryType     string           `json:"binary_type"`
	BinaryFileName string           `json:"binary_file_name"`
	StructInfo     manifestStruct   `json:"struct_info"`
	Version        uint16           `json:"version"`
}

type manifestStruct struct {
	ChunkType string `json:"chunk_type"`
	FilePath  string `json:"file_path"`
	ChunkName string `json:"chunk_name"`
}

func readManifest(path string) (*manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, xerrors.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func writeManifest(path string, m *manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return xerrors.Errorf("encoding manifest: %w", err)
	}
	return os.WriteFile(path, b, 0644)
}
