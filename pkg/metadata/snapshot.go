package metadata

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/arthur-debert/npkg/pkg/errors"
	"github.com/klauspost/compress/zstd"
)

// Snapshot is the decoded packages.json of a release
type Snapshot struct {
	Packages map[string]Package `json:"packages"`
}

// Package is one attribute of the snapshot
type Package struct {
	Name    string `json:"name"`
	Pname   string `json:"pname"`
	Version string `json:"version"`
	Meta    Meta   `json:"meta"`
}

// Meta holds the package metadata npkg displays
type Meta struct {
	Broken      bool   `json:"broken,omitempty"`
	Description string `json:"description,omitempty"`
}

// Pairs returns the attribute -> derivation name mapping of the snapshot
func (s *Snapshot) Pairs() map[string]string {
	pairs := make(map[string]string, len(s.Packages))
	for attr, p := range s.Packages {
		if p.Name == "" {
			continue
		}
		pairs[attr] = p.Name
	}
	return pairs
}

// DecodeSnapshot parses uncompressed packages.json content
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, errors.ErrCache, "failed to parse package metadata")
	}
	if s.Packages == nil {
		s.Packages = map[string]Package{}
	}
	return &s, nil
}

// compress zstd-encodes raw
func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCache, "failed to create zstd writer")
	}
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return nil, errors.Wrap(err, errors.ErrCache, "failed to compress package metadata")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCache, "failed to compress package metadata")
	}
	return buf.Bytes(), nil
}

// decompressSnapshot decodes a stored packages.json.zst
func decompressSnapshot(data []byte) (*Snapshot, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCache, "failed to open package metadata")
	}
	defer zr.Close()
	return DecodeSnapshot(zr)
}
