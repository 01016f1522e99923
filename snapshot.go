package matcha

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/matchadb/matcha/blobstore"
	"github.com/matchadb/matcha/codec"
	"github.com/matchadb/matcha/internal/idalloc"
	"github.com/matchadb/matcha/internal/vindex"
)

// Snapshot container layout, all integers little-endian:
//
//	magic    [4]byte "MTC1"
//	version  uint16
//	codec    uint8 name length, name bytes
//	compress uint8 (CompressionType)
//	sections uint32 count
//	per section:
//	  uint16 name length, name bytes
//	  uint32 raw size, uint32 stored size, stored bytes
//	checksum uint32 CRC32 (IEEE) of everything above
//
// A stored size of zero means the section body is raw, raw-size bytes
// long; otherwise it is a compressed block that inflates to raw size.
// Snapshots are self-describing: the header names the codec that
// encoded the structured sections, so any store can load any snapshot.
var snapshotMagic = [4]byte{'M', 'T', 'C', '1'}

const (
	snapshotVersion = uint16(1)

	sectionRegistry    = "registry"
	sectionPayloads    = "payloads"
	sectionAllocator   = "allocator"
	sectionLive        = "live"
	spaceSectionPrefix = "space:"

	// maxSections bounds the header-declared section count so a corrupt
	// header cannot drive the loader into huge allocations.
	maxSections = 1 << 20
)

// CompressionType selects how snapshot sections are compressed.
type CompressionType uint8

const (
	// CompressionNone stores sections raw.
	CompressionNone CompressionType = iota
	// CompressionLZ4 favors speed over ratio.
	CompressionLZ4
	// CompressionZSTD is the default: strong ratio at good speed.
	CompressionZSTD
)

// String returns the compression name.
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// snapshotEntry is the persisted form of one item's payload.
type snapshotEntry struct {
	ID      uint64  `json:"id" msgpack:"id"`
	Payload Payload `json:"payload" msgpack:"payload"`
}

// snapshotAllocator persists the identifier allocator position.
type snapshotAllocator struct {
	Next uint64 `json:"next" msgpack:"next"`
}

// SaveToWriter writes a point-in-time snapshot of the store to w.
func (s *Store) SaveToWriter(ctx context.Context, w io.Writer) error {
	start := time.Now()
	st, nextID, err := s.snapshotView(ctx)
	if err != nil {
		return err
	}

	err = writeSnapshot(w, st, nextID, s.opts.codec, s.opts.compression)

	duration := time.Since(start)
	s.opts.metricsCollector.RecordSnapshotSave(duration, err)
	s.opts.logger.LogSnapshotSave(ctx, "writer", st.live.Len(), duration, err)
	return err
}

// SaveToFile writes a snapshot to path. The file is written to a
// temporary sibling first and renamed into place, so a crash never
// leaves a partial snapshot at path.
func (s *Store) SaveToFile(ctx context.Context, path string) error {
	start := time.Now()
	st, nextID, err := s.snapshotView(ctx)
	if err != nil {
		return err
	}

	err = writeSnapshotFile(path, st, nextID, s.opts.codec, s.opts.compression)

	duration := time.Since(start)
	s.opts.metricsCollector.RecordSnapshotSave(duration, err)
	s.opts.logger.LogSnapshotSave(ctx, path, st.live.Len(), duration, err)
	return err
}

// SaveToBlobStore writes a snapshot to the given blob store key. The
// blob becomes visible atomically on success and is discarded on error.
func (s *Store) SaveToBlobStore(ctx context.Context, bs blobstore.BlobStore, key string) error {
	start := time.Now()
	st, nextID, err := s.snapshotView(ctx)
	if err != nil {
		return err
	}

	err = func() error {
		sections, err := buildSections(st, nextID, s.opts.codec)
		if err != nil {
			return err
		}
		wb, err := bs.Create(ctx, key)
		if err != nil {
			return &UnavailableError{Op: "snapshot save", Err: err}
		}
		if err := writeContainer(wb, s.opts.codec.Name(), s.opts.compression, sections); err != nil {
			_ = wb.Abort()
			return &UnavailableError{Op: "snapshot save", Err: err}
		}
		if err := wb.Close(); err != nil {
			return &UnavailableError{Op: "snapshot save", Err: err}
		}
		return nil
	}()

	duration := time.Since(start)
	s.opts.metricsCollector.RecordSnapshotSave(duration, err)
	s.opts.logger.LogSnapshotSave(ctx, key, st.live.Len(), duration, err)
	return err
}

// SaveSnapshot writes a snapshot to the blob store and key configured
// with WithSnapshotStore.
func (s *Store) SaveSnapshot(ctx context.Context) error {
	if s.opts.snapshotStore == nil {
		return fmt.Errorf("no snapshot store configured: %w", ErrContractViolation)
	}
	return s.SaveToBlobStore(ctx, s.opts.snapshotStore, s.opts.snapshotKey)
}

// snapshotView returns the state version and allocator position a
// snapshot should serialize.
func (s *Store) snapshotView(ctx context.Context) (*storeState, uint64, error) {
	if s.closed.Load() {
		return nil, 0, ErrClosed
	}
	if err := s.ensureReady(ctx); err != nil {
		return nil, 0, err
	}
	return s.state.Load(), s.alloc.Peek(), nil
}

// LoadFromReader builds a store from a snapshot stream.
func LoadFromReader(r io.Reader, optFns ...Option) (*Store, error) {
	opts := applyOptions(optFns)
	start := time.Now()

	st, nextID, err := decodeSnapshot(bufio.NewReader(r))

	duration := time.Since(start)
	opts.metricsCollector.RecordSnapshotLoad(duration, err)
	if err != nil {
		opts.logger.LogSnapshotLoad(context.Background(), "reader", 0, err)
		return nil, err
	}
	opts.logger.LogSnapshotLoad(context.Background(), "reader", st.live.Len(), nil)
	return newLoadedStore(st, nextID, opts), nil
}

// LoadFromFile builds a store from a snapshot file.
func LoadFromFile(path string, optFns ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFromReader(f, optFns...)
}

// LoadFromBlobStore builds a store from a snapshot blob. A missing key
// returns blobstore.ErrNotFound unchanged so callers can distinguish
// first-run bootstrap from a broken snapshot.
func LoadFromBlobStore(ctx context.Context, bs blobstore.BlobStore, key string, optFns ...Option) (*Store, error) {
	opts := applyOptions(optFns)
	start := time.Now()

	st, nextID, err := func() (*storeState, uint64, error) {
		data, err := blobstore.ReadAll(ctx, bs, key)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return nil, 0, err
			}
			return nil, 0, &UnavailableError{Op: "snapshot load", Err: err}
		}
		return decodeSnapshot(bytes.NewReader(data))
	}()

	duration := time.Since(start)
	opts.metricsCollector.RecordSnapshotLoad(duration, err)
	if err != nil {
		opts.logger.LogSnapshotLoad(ctx, key, 0, err)
		return nil, err
	}
	opts.logger.LogSnapshotLoad(ctx, key, st.live.Len(), nil)
	return newLoadedStore(st, nextID, opts), nil
}

func newLoadedStore(st *storeState, nextID uint64, opts options) *Store {
	s := &Store{
		opts:  opts,
		alloc: idalloc.New(),
	}
	if nextID > 0 {
		s.alloc.Observe(nextID - 1)
	}
	if maxID, ok := st.live.Max(); ok {
		s.alloc.Observe(maxID)
	}
	s.state.Store(st)
	s.ready.Store(true)
	return s
}

// writeSnapshot serializes st into the container format.
func writeSnapshot(w io.Writer, st *storeState, nextID uint64, c codec.Codec, ct CompressionType) error {
	sections, err := buildSections(st, nextID, c)
	if err != nil {
		return err
	}
	return writeContainer(w, c.Name(), ct, sections)
}

func writeSnapshotFile(path string, st *storeState, nextID uint64, c codec.Codec, ct CompressionType) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".snap-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	bw := bufio.NewWriter(f)
	if err := writeSnapshot(bw, st, nextID, c, ct); err != nil {
		cleanup()
		return err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	if err := os.Rename(f.Name(), path); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

type section struct {
	name string
	data []byte
}

// buildSections encodes every part of st with the codec. Section order
// and entry order are deterministic so identical states produce
// identical snapshots.
func buildSections(st *storeState, nextID uint64, c codec.Codec) ([]section, error) {
	specs := make([]SpaceSpec, 0, len(st.specs))
	for _, spec := range st.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	registry, err := c.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("encode registry: %w", err)
	}

	entries := make([]snapshotEntry, 0, len(st.payloads))
	for id, p := range st.payloads {
		entries = append(entries, snapshotEntry{ID: uint64(id), Payload: p})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	payloads, err := c.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode payloads: %w", err)
	}

	alloc, err := c.Marshal(snapshotAllocator{Next: nextID})
	if err != nil {
		return nil, fmt.Errorf("encode allocator: %w", err)
	}

	live, err := st.live.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode live set: %w", err)
	}

	sections := []section{
		{name: sectionRegistry, data: registry},
		{name: sectionPayloads, data: payloads},
		{name: sectionAllocator, data: alloc},
		{name: sectionLive, data: live},
	}
	for _, spec := range specs {
		sections = append(sections, section{
			name: spaceSectionPrefix + spec.Name,
			data: packVectorRows(st.indexes[spec.Name].Rows(), spec.Dimension),
		})
	}
	return sections, nil
}

func writeContainer(w io.Writer, codecName string, ct CompressionType, sections []section) error {
	if len(codecName) > math.MaxUint8 {
		return fmt.Errorf("codec name too long: %d bytes", len(codecName))
	}

	crc := crc32.NewIEEE()
	mw := io.MultiWriter(w, crc)

	hdr := make([]byte, 0, 12+len(codecName))
	hdr = append(hdr, snapshotMagic[:]...)
	var version [2]byte
	binary.LittleEndian.PutUint16(version[:], snapshotVersion)
	hdr = append(hdr, version[:]...)
	hdr = append(hdr, uint8(len(codecName)))
	hdr = append(hdr, codecName...)
	hdr = append(hdr, uint8(ct))
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(sections)))
	hdr = append(hdr, count[:]...)
	if _, err := mw.Write(hdr); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	for _, sec := range sections {
		if err := writeSection(mw, sec, ct); err != nil {
			return err
		}
	}

	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], crc.Sum32())
	if _, err := w.Write(sum[:]); err != nil {
		return fmt.Errorf("write snapshot checksum: %w", err)
	}
	return nil
}

func writeSection(w io.Writer, sec section, ct CompressionType) error {
	if len(sec.name) > math.MaxUint16 {
		return fmt.Errorf("section name too long: %d bytes", len(sec.name))
	}
	if uint64(len(sec.data)) > math.MaxUint32 {
		return fmt.Errorf("section %q too large: %d bytes", sec.name, len(sec.data))
	}

	stored, compressed, err := compressBlock(sec.data, ct)
	if err != nil {
		return fmt.Errorf("compress section %q: %w", sec.name, err)
	}

	hdr := make([]byte, 2+len(sec.name)+8)
	binary.LittleEndian.PutUint16(hdr, uint16(len(sec.name)))
	copy(hdr[2:], sec.name)
	off := 2 + len(sec.name)
	binary.LittleEndian.PutUint32(hdr[off:], uint32(len(sec.data)))
	if compressed {
		binary.LittleEndian.PutUint32(hdr[off+4:], uint32(len(stored)))
	}
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write section %q: %w", sec.name, err)
	}
	if _, err := w.Write(stored); err != nil {
		return fmt.Errorf("write section %q: %w", sec.name, err)
	}
	return nil
}

// compressBlock compresses data with ct, reporting whether the result
// is actually compressed. Incompressible data is stored raw.
func compressBlock(data []byte, ct CompressionType) ([]byte, bool, error) {
	if len(data) == 0 || ct == CompressionNone {
		return data, false, nil
	}
	switch ct {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		var c lz4.Compressor
		n, err := c.CompressBlock(data, buf)
		if err != nil {
			return nil, false, err
		}
		if n == 0 || n >= len(data) {
			return data, false, nil
		}
		return buf[:n], true, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, false, err
		}
		out := enc.EncodeAll(data, nil)
		_ = enc.Close()
		if len(out) >= len(data) {
			return data, false, nil
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("unknown compression type %d", ct)
	}
}

func decompressBlock(stored []byte, rawSize uint32, ct CompressionType) ([]byte, error) {
	switch ct {
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, err
		}
		if n != int(rawSize) {
			return nil, fmt.Errorf("lz4 block decoded to %d bytes, want %d", n, rawSize)
		}
		return out, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(stored, make([]byte, 0, rawSize))
		if err != nil {
			return nil, err
		}
		if len(out) != int(rawSize) {
			return nil, fmt.Errorf("zstd block decoded to %d bytes, want %d", len(out), rawSize)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compressed block with compression type %s", ct)
	}
}

// decodeSnapshot parses a snapshot stream into a store state and the
// persisted allocator position. Malformed input yields a
// SnapshotFormatError; read failures pass through.
func decodeSnapshot(r io.Reader) (*storeState, uint64, error) {
	crc := crc32.NewIEEE()
	tr := io.TeeReader(r, crc)

	var magic [4]byte
	if err := readFull(tr, magic[:], "header"); err != nil {
		return nil, 0, err
	}
	if magic != snapshotMagic {
		return nil, 0, &SnapshotFormatError{Reason: "bad magic"}
	}

	var fixed [2]byte
	if err := readFull(tr, fixed[:], "header"); err != nil {
		return nil, 0, err
	}
	if version := binary.LittleEndian.Uint16(fixed[:]); version != snapshotVersion {
		return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	var b [1]byte
	if err := readFull(tr, b[:], "header"); err != nil {
		return nil, 0, err
	}
	codecName := make([]byte, b[0])
	if err := readFull(tr, codecName, "header"); err != nil {
		return nil, 0, err
	}
	c, ok := codec.ByName(string(codecName))
	if !ok {
		return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("unknown codec %q", codecName)}
	}

	if err := readFull(tr, b[:], "header"); err != nil {
		return nil, 0, err
	}
	ct := CompressionType(b[0])
	if ct > CompressionZSTD {
		return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("unknown compression %d", b[0])}
	}

	var countBuf [4]byte
	if err := readFull(tr, countBuf[:], "header"); err != nil {
		return nil, 0, err
	}
	count := binary.LittleEndian.Uint32(countBuf[:])
	if count > maxSections {
		return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("implausible section count %d", count)}
	}

	sections := make(map[string][]byte, count)
	for i := uint32(0); i < count; i++ {
		name, data, err := readSection(tr, ct)
		if err != nil {
			return nil, 0, err
		}
		if _, dup := sections[name]; dup {
			return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("duplicate section %q", name)}
		}
		sections[name] = data
	}

	// The checksum trails the hashed region, so read it from the
	// underlying reader, not the tee.
	want := crc.Sum32()
	var sumBuf [4]byte
	if err := readFull(r, sumBuf[:], "checksum"); err != nil {
		return nil, 0, err
	}
	if got := binary.LittleEndian.Uint32(sumBuf[:]); got != want {
		return nil, 0, &SnapshotFormatError{Reason: "checksum mismatch"}
	}

	return assembleState(sections, c)
}

func readSection(r io.Reader, ct CompressionType) (string, []byte, error) {
	var lenBuf [2]byte
	if err := readFull(r, lenBuf[:], "section"); err != nil {
		return "", nil, err
	}
	name := make([]byte, binary.LittleEndian.Uint16(lenBuf[:]))
	if err := readFull(r, name, "section"); err != nil {
		return "", nil, err
	}

	var sizes [8]byte
	if err := readFull(r, sizes[:], "section"); err != nil {
		return "", nil, err
	}
	rawSize := binary.LittleEndian.Uint32(sizes[0:4])
	storedSize := binary.LittleEndian.Uint32(sizes[4:8])

	if storedSize == 0 {
		data := make([]byte, rawSize)
		if err := readFull(r, data, "section"); err != nil {
			return "", nil, err
		}
		return string(name), data, nil
	}

	if ct == CompressionNone {
		return "", nil, &SnapshotFormatError{Reason: fmt.Sprintf("section %q: compressed block in uncompressed snapshot", name)}
	}
	stored := make([]byte, storedSize)
	if err := readFull(r, stored, "section"); err != nil {
		return "", nil, err
	}
	data, err := decompressBlock(stored, rawSize, ct)
	if err != nil {
		return "", nil, &SnapshotFormatError{Reason: fmt.Sprintf("section %q: %v", name, err)}
	}
	return string(name), data, nil
}

// readFull reads exactly len(buf) bytes, mapping EOF to a format error
// and passing real read failures through.
func readFull(r io.Reader, buf []byte, what string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &SnapshotFormatError{Reason: "truncated " + what}
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	return nil
}

// assembleState validates decoded sections and builds the store state.
func assembleState(sections map[string][]byte, c codec.Codec) (*storeState, uint64, error) {
	registry, ok := sections[sectionRegistry]
	if !ok {
		return nil, 0, &SnapshotFormatError{Reason: "missing registry section"}
	}
	var specs []SpaceSpec
	if err := c.Unmarshal(registry, &specs); err != nil {
		return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("registry: %v", err)}
	}

	st := newStoreState()
	for _, spec := range specs {
		if spec.Name == "" || spec.Dimension < 1 {
			return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("invalid registry entry %q", spec.Name)}
		}
		if spec.Metric != MetricCosine {
			return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("space %q: unsupported metric %d", spec.Name, spec.Metric)}
		}
		if _, dup := st.specs[spec.Name]; dup {
			return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("duplicate space %q", spec.Name)}
		}
		st.specs[spec.Name] = spec
		st.indexes[spec.Name] = vindex.New(spec.Dimension)
	}

	liveData, ok := sections[sectionLive]
	if !ok {
		return nil, 0, &SnapshotFormatError{Reason: "missing live section"}
	}
	if err := st.live.UnmarshalBinary(liveData); err != nil {
		return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("live set: %v", err)}
	}

	payloadData, ok := sections[sectionPayloads]
	if !ok {
		return nil, 0, &SnapshotFormatError{Reason: "missing payloads section"}
	}
	var entries []snapshotEntry
	if err := c.Unmarshal(payloadData, &entries); err != nil {
		return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("payloads: %v", err)}
	}
	for _, e := range entries {
		if !st.live.Contains(e.ID) {
			return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("payload for unknown item %d", e.ID)}
		}
		st.payloads[ItemID(e.ID)] = e.Payload
	}

	allocData, ok := sections[sectionAllocator]
	if !ok {
		return nil, 0, &SnapshotFormatError{Reason: "missing allocator section"}
	}
	var alloc snapshotAllocator
	if err := c.Unmarshal(allocData, &alloc); err != nil {
		return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("allocator: %v", err)}
	}

	for name, data := range sections {
		switch name {
		case sectionRegistry, sectionPayloads, sectionAllocator, sectionLive:
			continue
		}
		spaceName, ok := strings.CutPrefix(name, spaceSectionPrefix)
		if !ok {
			return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("unknown section %q", name)}
		}
		spec, ok := st.specs[spaceName]
		if !ok {
			return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("vectors for undeclared space %q", spaceName)}
		}
		rows, err := unpackVectorRows(data, spec.Dimension)
		if err != nil {
			return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("space %q: %v", spaceName, err)}
		}
		idx := st.indexes[spaceName]
		for _, row := range rows {
			if !st.live.Contains(row.ID) {
				return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("space %q: vector for unknown item %d", spaceName, row.ID)}
			}
			if err := idx.Put(row.ID, row.Vec); err != nil {
				return nil, 0, &SnapshotFormatError{Reason: fmt.Sprintf("space %q: %v", spaceName, err)}
			}
		}
	}

	return st, alloc.Next, nil
}

// packVectorRows encodes rows as a count followed by fixed-size records
// of item ID and dim float32 components.
func packVectorRows(rows []vindex.Row, dim int) []byte {
	buf := make([]byte, 8+len(rows)*(8+dim*4))
	binary.LittleEndian.PutUint64(buf, uint64(len(rows)))
	off := 8
	for _, r := range rows {
		binary.LittleEndian.PutUint64(buf[off:], r.ID)
		off += 8
		for _, v := range r.Vec {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			off += 4
		}
	}
	return buf
}

func unpackVectorRows(data []byte, dim int) ([]vindex.Row, error) {
	if len(data) < 8 {
		return nil, errors.New("truncated vector block")
	}
	count := binary.LittleEndian.Uint64(data)
	body := data[8:]
	rowSize := uint64(8 + dim*4)
	if uint64(len(body))/rowSize != count || uint64(len(body))%rowSize != 0 {
		return nil, fmt.Errorf("vector block size %d does not match %d rows of dimension %d", len(data), count, dim)
	}

	rows := make([]vindex.Row, count)
	off := 0
	for i := range rows {
		id := binary.LittleEndian.Uint64(body[off:])
		off += 8
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off:]))
			off += 4
		}
		rows[i] = vindex.Row{ID: id, Vec: vec}
	}
	return rows, nil
}
