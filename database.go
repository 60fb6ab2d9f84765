package corescan

import (
	"fmt"
	"sync/atomic"

	"github.com/coregx/corescan/alloc"
	"github.com/coregx/corescan/bytecode"
	"github.com/coregx/corescan/internal/telemetry"
	"github.com/coregx/corescan/rose"
)

// BlobAlignment is the alignment DeserializeAt requires of its target.
const BlobAlignment = alloc.Alignment

// Database is a compiled, immutable pattern set. It is safe for
// concurrent use; each concurrent scan needs its own Scratch.
type Database struct {
	blob  []byte
	hdr   bytecode.Header
	mode  Mode
	rt    *rose.Rose
	id    uint64
	free  alloc.Funcs // zero when the caller owns blob
	rec   *telemetry.Recorder
	freed atomic.Bool
}

var lastDatabaseID atomic.Uint64

func newDatabase(blob []byte, hdr bytecode.Header, rt *rose.Rose, ac alloc.Context, o options) (*Database, error) {
	rec, err := telemetry.New(o.meter)
	if err != nil {
		ac.Database.Put(blob)
		return nil, fmt.Errorf("%w: meter provider: %v", ErrInvalid, err)
	}
	return &Database{
		blob: blob,
		hdr:  hdr,
		mode: Mode(hdr.Mode),
		rt:   rt,
		id:   lastDatabaseID.Add(1),
		free: ac.Database,
		rec:  rec,
	}, nil
}

// Mode returns the mode the database was compiled for.
func (db *Database) Mode() Mode { return db.mode }

// Size returns the size of the database in memory.
func (db *Database) Size() int { return len(db.blob) }

// StreamSize returns the size of the state each stream keeps.
func (db *Database) StreamSize() (int, error) {
	if err := db.check(ModeStream); err != nil {
		return 0, err
	}
	return db.rt.StreamStateSize(), nil
}

// Info describes the database, e.g.
// "Version: 1.0.0 Features: AVX2 Mode: STREAM".
func (db *Database) Info() string { return info(db.hdr) }

func info(h bytecode.Header) string {
	return fmt.Sprintf("Version: %s Features: %s Mode: %s",
		bytecode.VersionString(h.Version), Feature(h.Platform), Mode(h.Mode))
}

// Serialize returns a copy of the database blob, allocated with the
// misc allocator of opts.
func (db *Database) Serialize(opts ...Option) ([]byte, error) {
	if db == nil || db.freed.Load() {
		return nil, ErrInvalid
	}
	b, err := newOptions(opts).allocator().Misc.Get(len(db.blob))
	if err != nil {
		return nil, err
	}
	copy(b, db.blob)
	return b, nil
}

// Free releases the database memory. The database must not be used
// afterwards.
func (db *Database) Free() error {
	if db == nil || !db.freed.CompareAndSwap(false, true) {
		return ErrInvalid
	}
	db.free.Put(db.blob)
	db.blob, db.rt = nil, nil
	return nil
}

// check validates db for a scan entry point of the given mode.
func (db *Database) check(mode Mode) error {
	if db == nil || db.freed.Load() || db.rt == nil {
		return ErrInvalid
	}
	if db.mode.scan() != mode {
		return fmt.Errorf("%w: database is %s, call needs %s", ErrDBModeError, db.mode, mode)
	}
	return nil
}

// validateSerialized checks a blob in order: length, magic, version,
// mode, platform and checksum. It returns the header and the bytecode.
func validateSerialized(b []byte, full bool) (bytecode.Header, []byte, error) {
	h, err := bytecode.ParseHeader(b)
	if err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if h.Length > uint64(len(b)) || h.Length < bytecode.HeaderSize {
		return h, nil, fmt.Errorf("%w: blob of %d bytes, header says %d", ErrInvalid, len(b), h.Length)
	}
	if h.Magic != bytecode.Magic {
		return h, nil, fmt.Errorf("%w: bad magic %#x", ErrInvalid, h.Magic)
	}
	if h.Version != formatVersion {
		return h, nil, fmt.Errorf("%w: blob version %s, want %s", ErrDBVersionError,
			bytecode.VersionString(h.Version), bytecode.VersionString(formatVersion))
	}
	if !full {
		return h, nil, nil
	}
	if err := Mode(h.Mode).validate(); err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if req := Feature(h.Platform); !PopulatePlatform().supports(req) {
		return h, nil, fmt.Errorf("%w: database needs %s", ErrDBPlatformError, req)
	}
	body, err := h.Body(b)
	if err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if bytecode.Checksum(body) != h.Checksum {
		return h, nil, fmt.Errorf("%w: checksum mismatch", ErrInvalid)
	}
	return h, body, nil
}

// SerializedSize returns the memory a database deserialized from b
// occupies.
func SerializedSize(b []byte) (int, error) {
	h, _, err := validateSerialized(b, false)
	if err != nil {
		return 0, err
	}
	return int(h.Length), nil
}

// SerializedInfo describes a serialized database without loading it.
func SerializedInfo(b []byte) (string, error) {
	h, _, err := validateSerialized(b, false)
	if err != nil {
		return "", err
	}
	return info(h), nil
}

// Deserialize loads a serialized database. b may have any alignment; the
// database is copied into memory from the database allocator.
func Deserialize(b []byte, opts ...Option) (*Database, error) {
	h, _, err := validateSerialized(b, true)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	ac := o.allocator()
	blob, err := ac.Database.Get(int(h.Length))
	if err != nil {
		return nil, err
	}
	copy(blob, b[:h.Length])
	rt, err := load(blob, h)
	if err != nil {
		ac.Database.Put(blob)
		return nil, err
	}
	return newDatabase(blob, h, rt, ac, o)
}

// DeserializeAt loads a serialized database into dst, which must be
// BlobAlignment aligned and at least SerializedSize(b) bytes. The caller
// keeps ownership of dst.
func DeserializeAt(b, dst []byte, opts ...Option) (*Database, error) {
	if !alloc.Aligned(dst) {
		return nil, ErrBadAlign
	}
	h, _, err := validateSerialized(b, true)
	if err != nil {
		return nil, err
	}
	if uint64(len(dst)) < h.Length {
		return nil, fmt.Errorf("%w: target of %d bytes, need %d", ErrInvalid, len(dst), h.Length)
	}
	blob := dst[:h.Length]
	copy(blob, b[:h.Length])
	rt, err := load(blob, h)
	if err != nil {
		return nil, err
	}
	return newDatabase(blob, h, rt, alloc.Context{}, newOptions(opts))
}

// load decodes the runtime from a blob in its final location.
func load(blob []byte, h bytecode.Header) (*rose.Rose, error) {
	body, err := h.Body(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	rt, err := decodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return rt, nil
}
