package metadata

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"pipelayout/internal/layout"
)

// Marshal encodes b. Equal blobs encode to equal bytes.
func Marshal(b *Blob) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(b); err != nil {
		return nil, &MetadataError{Kind: MetaErrEncode, Err: err}
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes and checks a blob written by any 1.x emitter.
func Unmarshal(data []byte) (*Blob, error) {
	var b Blob
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&b); err != nil {
		return nil, &MetadataError{Kind: MetaErrDecode, Err: err}
	}
	if b.Version.Major != VersionMajor {
		return nil, &MetadataError{Kind: MetaErrVersion, Detail: b.Version.String()}
	}
	if b.Version.Minor == 0 {
		if err := deriveSizes(&b.SpillTable); err != nil {
			return nil, err
		}
	}
	if err := check(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// deriveSizes fills entry sizes of 1.0 blobs from offset deltas.
func deriveSizes(t *SpillTable) error {
	order := make([]int, len(t.Entries))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		return cmp.Compare(t.Entries[x].ByteOffset, t.Entries[y].ByteOffset)
	})
	for k, i := range order {
		end := t.SizeBytes
		if k+1 < len(order) {
			end = t.Entries[order[k+1]].ByteOffset
		}
		start := t.Entries[i].ByteOffset
		if end <= start || (end-start)%layout.WordBytes != 0 {
			return &MetadataError{Kind: MetaErrCorrupt, Detail: fmt.Sprintf("entry %s has no room before byte %d", t.Entries[i].Ref, end)}
		}
		t.Entries[i].SizeInWords = (end - start) / layout.WordBytes
	}
	return nil
}

func check(b *Blob) error {
	var words uint64
	for _, e := range b.SpillTable.Entries {
		if e.SizeInWords == 0 || e.ByteOffset%layout.WordBytes != 0 {
			return &MetadataError{Kind: MetaErrCorrupt, Detail: "bad spill table entry " + e.Ref}
		}
		end := uint64(e.ByteOffset) + uint64(e.SizeInWords)*layout.WordBytes
		if end > uint64(b.SpillTable.SizeBytes) {
			return &MetadataError{Kind: MetaErrCorrupt, Detail: fmt.Sprintf("entry %s ends past the table (%d > %d)", e.Ref, end, b.SpillTable.SizeBytes)}
		}
		words += uint64(e.SizeInWords)
	}
	for _, st := range b.Stages {
		for i, tag := range st.UserDataRegMap {
			kind, off := ClassifyTag(tag)
			if kind == TagKindInvalid || (kind == TagKindLeaf && uint64(off) >= words) {
				return &MetadataError{Kind: MetaErrCorrupt, Detail: fmt.Sprintf("stage %s register %d has tag %#x", st.Stage, i, tag)}
			}
		}
	}
	return nil
}

// WriteFile encodes b and atomically replaces path.
func WriteFile(path string, b *Blob) (err error) {
	data, err := Marshal(b)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".pipelayout-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile loads a blob from path.
func ReadFile(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
