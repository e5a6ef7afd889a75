package redoxfs

import (
	"github.com/mohae/deepcopy"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/redox-rs/schemeio/pkg/block"
	"github.com/redox-rs/schemeio/pkg/diagnostics"
)

// FileResource is an open file handle: an in-memory buffer holding the
// node's data, a seek cursor, and a dirty flag tracking whether the
// buffer has diverged from disk.
//
// FileResource holds a reference to the FileSystem it was opened from
// rather than a raw back-pointer, so Sync can rewrite the node's record
// and update the shared node list without unsafe aliasing — per the
// spec's guidance to model the source's *mut FileScheme back-reference
// as a handle into a registry the resource can call back into.
type FileResource struct {
	fs       *FileSystem
	pipeline *block.Pipeline
	node     Node
	buffer   []byte
	cursor   int
	dirty    bool
	log      *zap.Logger
	diag     *diagnostics.Log
}

// NewFileResource constructs a FileResource over node with the given
// initial buffer contents (already read from disk by the scheme).
func NewFileResource(fs *FileSystem, pipeline *block.Pipeline, node Node, buffer []byte, log *zap.Logger) *FileResource {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileResource{fs: fs, pipeline: pipeline, node: node, buffer: buffer, log: log, diag: diagnostics.New(log)}
}

// Read copies bytes from the cursor into buf, advancing the cursor. It
// never errors; reading past the end of the buffer returns 0.
func (f *FileResource) Read(buf []byte) int {
	n := copy(buf, f.buffer[f.cursor:])
	f.cursor += n
	return n
}

// Write overwrites buffer contents starting at the cursor, appending
// past the current end, and marks the resource dirty. It always
// consumes the whole of buf.
func (f *FileResource) Write(buf []byte) int {
	n := 0
	for n < len(buf) && f.cursor < len(f.buffer) {
		f.buffer[f.cursor] = buf[n]
		f.cursor++
		n++
	}
	for n < len(buf) {
		f.buffer = append(f.buffer, buf[n])
		f.cursor++
		n++
	}
	if n > 0 {
		f.dirty = true
	}
	return n
}

// SeekWhence selects the origin for Seek.
type SeekWhence int

const (
	SeekStart SeekWhence = iota
	SeekCurrent
	SeekEnd
)

// Seek repositions the cursor. The result is clamped at 0 below but not
// above: seeking past the end of the buffer zero-extends it up to the
// new cursor. Seek does not itself mark the resource dirty.
func (f *FileResource) Seek(whence SeekWhence, offset int64) int {
	var target int64
	switch whence {
	case SeekStart:
		target = offset
	case SeekCurrent:
		target = int64(f.cursor) + offset
	case SeekEnd:
		target = int64(len(f.buffer)) + offset
	}
	if target < 0 {
		target = 0
	}
	f.cursor = int(target)
	for len(f.buffer) < f.cursor {
		f.buffer = append(f.buffer, 0)
	}
	return f.cursor
}

// Sync walks the node's extents writing back the buffer, growing or
// shrinking each extent's recorded length to match what was actually
// written, and rewrites the node record if its extents changed. It
// returns false — without reallocating — if the buffer is larger than
// the node's existing extents can hold; the spec documents this as an
// explicit limitation (InsufficientSpace), not a bug to silently work
// around.
func (f *FileResource) Sync() bool {
	if !f.dirty {
		return true
	}

	var nodeDirty bool
	var pos, remaining int64 = 0, int64(len(f.buffer))
	var errs error

	for i := range f.node.Extents {
		extent := f.node.Extents[i]
		if extent.Empty() {
			continue
		}
		maxPayload := int64(extent.Sectors() * block.SectorSize)
		size := remaining
		if size > maxPayload {
			size = maxPayload
		}
		if uint64(size) != extent.LengthByte {
			extent.LengthByte = uint64(size)
			nodeDirty = true
		}
		f.node.Extents[i] = extent

		if size > 0 {
			if err := f.pipeline.Submit(block.Extent{Block: extent.Block, LengthByte: uint64(size)}, f.buffer[pos:pos+size], false); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		pos += size
		remaining -= size
	}

	if nodeDirty {
		rec := f.node.Record()
		recBytes, _ := rec.MarshalBinary()
		if err := f.pipeline.Submit(block.Extent{Block: f.node.Block, LengthByte: NodeSize}, recBytes, false); err != nil {
			errs = multierr.Append(errs, err)
		}
		f.fs.ReplaceNode(f.node)
	}

	if errs != nil {
		f.log.Warn("sync encountered errors", zap.Error(errs))
	}

	f.dirty = false

	if remaining > 0 {
		f.diag.SyncInsufficientSpace(f.node.Name, remaining)
		return false
	}
	return true
}

// Dup returns an independent FileResource with its own cursor and a
// snapshot of the current buffer, matching the source's copying dup
// semantics (no copy-on-write).
func (f *FileResource) Dup() *FileResource {
	return &FileResource{
		fs:       f.fs,
		pipeline: f.pipeline,
		node:     f.node.Clone(),
		buffer:   deepcopy.Copy(f.buffer).([]byte),
		cursor:   f.cursor,
		dirty:    f.dirty,
		log:      f.log,
		diag:     f.diag,
	}
}

// Close flushes dirty contents, ignoring the result, matching the
// source's Drop impl which always attempts a sync on the way out.
func (f *FileResource) Close() {
	f.Sync()
}

// Node returns the node this resource is backed by.
func (f *FileResource) Node() Node { return f.node }

// Len returns the current buffer length.
func (f *FileResource) Len() int { return len(f.buffer) }

// Cursor returns the current seek position.
func (f *FileResource) Cursor() int { return f.cursor }
