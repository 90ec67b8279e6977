// Copyright 2025 The QLever Authors.
package engine

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ad-freiburg/qlever-sub013/internal/cache"
	"github.com/ad-freiburg/qlever-sub013/internal/errs"
	"github.com/ad-freiburg/qlever-sub013/internal/vocabulary"
	"github.com/klauspost/compress/zstd"
)

// blobMagic and blobVersion are the fixed 7-byte magic and 4-byte version
// spec.md section 6's "Serialized blob format" requires readers to
// validate before decompressing.
var blobMagic = [7]byte{'Q', 'L', 'V', 'B', 'L', 'O', 'B'}

const blobVersion uint32 = 1

// blobMetadata is the first of the blob's three compressed segments.
type blobMetadata struct {
	NumTriples int      `json:"numTriples"`
	VocabSize  int      `json:"vocabSize"`
	Columns    []string `json:"columns"`
}

// SerializeToBlob writes a pre-built index's metadata, vocabulary, and
// named-result cache to out as one self-contained, versioned, compressed
// stream, per spec.md section 6. The permutation files themselves are
// not embedded — the blob is a distribution vehicle for the vocabulary
// and pinned results, loaded against permutation files shipped
// alongside it.
func SerializeToBlob(out io.Writer, vocab *vocabulary.SortedVocabulary, named *cache.NamedResultCache, numTriples int) error {
	if _, err := out.Write(blobMagic[:]); err != nil {
		return err
	}
	var versionBuf [4]byte
	binary.BigEndian.PutUint32(versionBuf[:], blobVersion)
	if _, err := out.Write(versionBuf[:]); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("engine: creating blob compressor: %w", err)
	}
	defer zw.Close()

	md := blobMetadata{NumTriples: numTriples, VocabSize: vocab.Size()}
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("engine: encoding blob metadata: %w", err)
	}
	var vocabBuf bytes.Buffer
	if err := vocab.WriteAll(&vocabBuf); err != nil {
		return fmt.Errorf("engine: encoding blob vocabulary: %w", err)
	}
	namedSnapshot, err := named.Snapshot()
	if err != nil {
		return err
	}

	for _, segment := range [][]byte{mdJSON, vocabBuf.Bytes(), namedSnapshot} {
		if err := writeLengthPrefixed(zw, segment); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeFromBlob reads back a stream written by SerializeToBlob,
// validating the magic and version before decompressing anything.
func DeserializeFromBlob(in io.Reader) (*vocabulary.SortedVocabulary, *cache.NamedResultCache, error) {
	var magic [7]byte
	if _, err := io.ReadFull(in, magic[:]); err != nil {
		return nil, nil, errs.WrapCorruption(err, "engine: reading blob magic")
	}
	if magic != blobMagic {
		return nil, nil, errs.Corruption("engine: not a qlever blob (bad magic)")
	}
	var versionBuf [4]byte
	if _, err := io.ReadFull(in, versionBuf[:]); err != nil {
		return nil, nil, errs.WrapCorruption(err, "engine: reading blob version")
	}
	version := binary.BigEndian.Uint32(versionBuf[:])
	if version != blobVersion {
		return nil, nil, errs.Corruption("engine: blob version %d unsupported by this build (expects %d)", version, blobVersion)
	}

	zr, err := zstd.NewReader(in)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: creating blob decompressor: %w", err)
	}
	defer zr.Close()

	mdJSON, err := readLengthPrefixed(zr)
	if err != nil {
		return nil, nil, err
	}
	var md blobMetadata
	if err := json.Unmarshal(mdJSON, &md); err != nil {
		return nil, nil, errs.WrapCorruption(err, "engine: decoding blob metadata")
	}

	vocabBytes, err := readLengthPrefixed(zr)
	if err != nil {
		return nil, nil, err
	}
	vocab, err := vocabulary.LoadFrom(bytes.NewReader(vocabBytes))
	if err != nil {
		return nil, nil, errs.WrapCorruption(err, "engine: decoding blob vocabulary")
	}

	namedBytes, err := readLengthPrefixed(zr)
	if err != nil {
		return nil, nil, err
	}
	named, err := cache.ImportSnapshot(namedBytes)
	if err != nil {
		return nil, nil, err
	}

	return vocab, named, nil
}

func writeLengthPrefixed(w io.Writer, data []byte) error {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, errs.WrapCorruption(err, "engine: reading blob segment length")
	}
	n := binary.BigEndian.Uint64(lenBuf[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errs.WrapCorruption(err, "engine: reading blob segment")
	}
	return data, nil
}

// SerializeToBlobFile is a convenience wrapper creating path and calling
// SerializeToBlob.
func SerializeToBlobFile(path string, vocab *vocabulary.SortedVocabulary, named *cache.NamedResultCache, numTriples int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("engine: creating blob file: %w", err)
	}
	defer f.Close()
	return SerializeToBlob(f, vocab, named, numTriples)
}
