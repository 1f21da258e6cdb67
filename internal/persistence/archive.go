package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/virtualand/landgrid/internal/registry"
)

// Archive file layout: 4-byte magic, 32-byte blake3 checksum of the
// uncompressed JSON body, then the lz4-compressed body.
var archiveMagic = [4]byte{'L', 'G', 'A', '1'}

// ErrArchiveCorrupt is returned when an archive fails magic or checksum
// verification.
var ErrArchiveCorrupt = fmt.Errorf("archive corrupt")

type archiveBody struct {
	Version  int           `json:"version"`
	SavedAt  time.Time     `json:"saved_at"`
	Snapshot registry.Snap `json:"snapshot"`
}

// ExportArchive writes a snapshot to a portable compressed archive file.
func ExportArchive(path string, s registry.Snap) error {
	body, err := json.Marshal(archiveBody{
		Version:  registry.SchemaVersion,
		SavedAt:  time.Now().UTC(),
		Snapshot: s,
	})
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	sum := blake3.Sum256(body)

	var buf bytes.Buffer
	buf.Write(archiveMagic[:])
	buf.Write(sum[:])
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return fmt.Errorf("compress archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress archive: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// ImportArchive reads and verifies an archive, returning its snapshot.
func ImportArchive(path string) (registry.Snap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return registry.Snap{}, fmt.Errorf("read archive: %w", err)
	}
	if len(raw) < len(archiveMagic)+32 || !bytes.Equal(raw[:4], archiveMagic[:]) {
		return registry.Snap{}, fmt.Errorf("%w: bad header", ErrArchiveCorrupt)
	}
	var want [32]byte
	copy(want[:], raw[4:36])

	zr := lz4.NewReader(bytes.NewReader(raw[36:]))
	body, err := io.ReadAll(zr)
	if err != nil {
		return registry.Snap{}, fmt.Errorf("%w: decompress: %v", ErrArchiveCorrupt, err)
	}
	if blake3.Sum256(body) != want {
		return registry.Snap{}, fmt.Errorf("%w: checksum mismatch", ErrArchiveCorrupt)
	}

	var a archiveBody
	if err := json.Unmarshal(body, &a); err != nil {
		return registry.Snap{}, fmt.Errorf("%w: decode: %v", ErrArchiveCorrupt, err)
	}
	if a.Version != registry.SchemaVersion {
		return registry.Snap{}, fmt.Errorf("archive schema version %d, want %d", a.Version, registry.SchemaVersion)
	}
	return a.Snapshot, nil
}

// VerifyArchive checks an archive's integrity without using its contents.
func VerifyArchive(path string) error {
	_, err := ImportArchive(path)
	return err
}
