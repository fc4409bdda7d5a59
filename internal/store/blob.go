package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quorumlabs/quorum/internal/consts"
)

// blobRefPrefix marks references that point into the swap directory rather
// than carrying the payload inline.
const blobRefPrefix = "blob:"

// StoreBlob persists a payload and returns a reference for it. Payloads up
// to the inline threshold come back verbatim; larger ones are gzipped into
// the swap directory under their content hash, which also dedupes identical
// payloads. A small payload that itself starts with the reference prefix is
// spilled too, so RetrieveBlob can never mistake it for a file reference.
func (s *Store) StoreBlob(payload string) (string, error) {
	if len(payload) <= consts.MaxInlineBlobBytes && !strings.HasPrefix(payload, blobRefPrefix) {
		return payload, nil
	}

	sum := sha256.Sum256([]byte(payload))
	name := hex.EncodeToString(sum[:]) + ".gz"
	path := filepath.Join(s.swapDir, name)

	if _, err := os.Stat(path); err == nil {
		return blobRefPrefix + name, nil
	}

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(payload)); err != nil {
		return "", fmt.Errorf("failed to compress blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish blob: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	s.log.Debug("spilled %d bytes to %s", len(payload), name)
	return blobRefPrefix + name, nil
}

// RetrieveBlob resolves a reference produced by StoreBlob. References
// without the blob prefix are the payload itself.
func (s *Store) RetrieveBlob(ref string) (string, error) {
	if !strings.HasPrefix(ref, blobRefPrefix) {
		return ref, nil
	}

	path := filepath.Join(s.swapDir, strings.TrimPrefix(ref, blobRefPrefix))
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open blob: %w", err)
	}
	defer f.Close()

	r, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to read blob header: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decompress blob: %w", err)
	}
	return string(data), nil
}
