// Package archive implements frozen docSet archive format: magic header
// followed by xz compressed Ion binary payload.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/amazon-ion/ion-go/ion"
	"github.com/ulikunitz/xz"
)

// Magic starts every archive, last byte is format version.
var Magic = []byte("PKF1")

// ErrNotArchive is returned by Unpack for data without proper header.
var ErrNotArchive = errors.New("not a frozen archive")

// Pack serializes v and compresses result.
func Pack(v any) ([]byte, error) {
	payload, err := ion.MarshalBinary(v)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize archive: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(Magic)
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("unable to create compressor: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("unable to compress archive: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("unable to compress archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack restores value packed by Pack into v.
func Unpack(data []byte, v any) error {
	if !bytes.HasPrefix(data, Magic) {
		return ErrNotArchive
	}
	r, err := xz.NewReader(bytes.NewReader(data[len(Magic):]))
	if err != nil {
		return fmt.Errorf("unable to decompress archive: %w", err)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to decompress archive: %w", err)
	}
	if err := ion.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("unable to deserialize archive: %w", err)
	}
	return nil
}

// IsArchive checks archive header.
func IsArchive(data []byte) bool {
	return bytes.HasPrefix(data, Magic)
}
