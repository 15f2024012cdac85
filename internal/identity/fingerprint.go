// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package identity

import (
	"crypto/md5" //nolint:gosec // fingerprint format is fixed by the remote server
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	sampleSize = 1024
	firstStep  = -1
	lastStep   = 10
)

// ErrEmptyDocument is returned for zero-length files.
var ErrEmptyDocument = errors.New("empty document")

// sampleOffset returns 1024 << (2*i) evaluated on 32 bits with the shift
// count masked to 5 bits, so i = -1 yields 0.
func sampleOffset(i int) int64 {
	shift := uint32(2*i) & 31 //nolint:gosec // wraparound is the point
	return int64(uint32(sampleSize) << shift)
}

// Fingerprint returns the content fingerprint of the file at path.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the host
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return FingerprintReader(f, info.Size())
}

// LocatorHash derives a stable book hash from the locator, for documents
// whose content cannot be read.
func LocatorHash(locator string) string {
	sum := md5.Sum([]byte("locator:" + locator)) //nolint:gosec // identity only
	return hex.EncodeToString(sum[:])
}

// FingerprintReader computes the fingerprint of size bytes readable from r.
func FingerprintReader(r io.ReaderAt, size int64) (string, error) {
	if size <= 0 {
		return "", ErrEmptyDocument
	}

	h := md5.New() //nolint:gosec // see import
	buf := make([]byte, sampleSize)
	for i := firstStep; i <= lastStep; i++ {
		offset := sampleOffset(i)
		if offset >= size {
			break
		}
		n, err := r.ReadAt(buf, offset)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read at %d: %w", offset, err)
		}
		h.Write(buf[:n])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
