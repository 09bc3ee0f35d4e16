// Package grf reads and writes GRF 0x200 archives, the container Ragnarok
// Online ships its models in.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Faultbox/animdirector/pkg/encoding"
)

const (
	magic      = "Master of Magic"
	version    = 0x200
	headerSize = 46
	entrySize  = 17

	flagFile      = 0x01
	flagEncrypted = 0x02

	// Version 0x200 stores the file count as count + seed + 7.
	countBias = 7
)

// ErrNotFound is returned by Read for paths the archive does not hold.
var ErrNotFound = errors.New("grf: file not found")

// Header is the fixed archive header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry describes one stored file.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an opened GRF archive.
type Archive struct {
	r      io.ReaderAt
	closer io.Closer
	header Header
	files  map[string]*Entry
}

// Open opens the archive at path.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// NewReader reads the header and file table from r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{r: r, files: make(map[string]*Entry)}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close releases the underlying file, if Open created it.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	buf := make([]byte, headerSize)
	if _, err := a.r.ReadAt(buf, 0); err != nil {
		return err
	}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != magic {
		return fmt.Errorf("invalid magic %q", a.header.Magic[:])
	}
	if a.header.Version != version {
		return fmt.Errorf("unsupported version 0x%x", a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	base := int64(a.header.TableOffset) + headerSize
	var sizes [8]byte
	if _, err := a.r.ReadAt(sizes[:], base); err != nil {
		return err
	}
	compressed := binary.LittleEndian.Uint32(sizes[0:])
	uncompressed := binary.LittleEndian.Uint32(sizes[4:])

	table, err := a.inflate(base+8, compressed, uncompressed)
	if err != nil {
		return err
	}

	count := int64(a.header.FileCount) - int64(a.header.Seed) - countBias
	if count < 0 {
		return fmt.Errorf("invalid file count %d", a.header.FileCount)
	}
	off := 0
	for i := int64(0); i < count; i++ {
		end := bytes.IndexByte(table[off:], 0)
		if end < 0 {
			return fmt.Errorf("entry %d: unterminated name", i)
		}
		name := encoding.EUCKRToUTF8(table[off : off+end])
		off += end + 1
		if off+entrySize > len(table) {
			return fmt.Errorf("entry %d: truncated", i)
		}
		e := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(table[off:]),
			AlignedSize:      binary.LittleEndian.Uint32(table[off+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(table[off+8:]),
			Flags:            table[off+12],
			Offset:           binary.LittleEndian.Uint32(table[off+13:]),
		}
		off += entrySize
		if e.Flags&flagFile != 0 {
			a.files[e.Name] = e
		}
	}
	return nil
}

func (a *Archive) inflate(at int64, compressed, uncompressed uint32) ([]byte, error) {
	if uncompressed == 0 {
		return nil, nil
	}
	raw := make([]byte, compressed)
	if _, err := a.r.ReadAt(raw, at); err != nil {
		return nil, err
	}
	if compressed == uncompressed {
		return raw, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, uncompressed)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every stored path, sorted.
func (a *Archive) List() []string {
	out := make([]string, 0, len(a.files))
	for p := range a.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether path is stored. Lookups ignore case and accept
// either slash.
func (a *Archive) Contains(path string) bool {
	_, ok := a.files[normalizePath(path)]
	return ok
}

// Read returns the contents of path.
func (a *Archive) Read(path string) ([]byte, error) {
	e, ok := a.files[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%s: encrypted entries are not supported", path)
	}
	data, err := a.inflate(int64(e.Offset)+headerSize, e.CompressedSize, e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Write stores files as a new archive. Entries are written in path order
// and zlib-compressed unless compression would not shrink them.
func Write(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var body, table bytes.Buffer
	for _, name := range names {
		packed, err := pack(files[name])
		if err != nil {
			return fmt.Errorf("compressing %s: %w", name, err)
		}
		offset := uint32(body.Len())
		body.Write(packed)

		table.Write(encoding.UTF8ToEUCKR(strings.ReplaceAll(name, "/", "\\")))
		table.WriteByte(0)
		var rec [entrySize]byte
		binary.LittleEndian.PutUint32(rec[0:], uint32(len(packed)))
		binary.LittleEndian.PutUint32(rec[4:], uint32(len(packed)))
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(files[name])))
		rec[12] = flagFile
		binary.LittleEndian.PutUint32(rec[13:], offset)
		table.Write(rec[:])
	}
	packedTable, err := pack(table.Bytes())
	if err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}

	h := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(names)) + countBias,
		Version:     version,
	}
	copy(h.Magic[:], magic)
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[0:], uint32(len(packedTable)))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(table.Len()))
	if _, err := w.Write(sizes[:]); err != nil {
		return err
	}
	_, err = w.Write(packedTable)
	return err
}

// pack compresses data. Data that does not shrink is stored as is, which
// readers recognise by equal stored and original sizes.
func pack(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	if buf.Len() >= len(data) {
		return data, nil
	}
	return buf.Bytes(), nil
}

func normalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}
