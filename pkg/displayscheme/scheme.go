// Package displayscheme implements the display:// scheme: a
// write-through framebuffer resource with no read support and no
// duplication, supplementing the spec's core scope with the small
// scheme the source carries alongside file and tcp.
package displayscheme

import "errors"

// Framebuffer is the backing store a DisplayResource writes through to:
// a fixed-size offscreen buffer plus a Flip to present it, standing in
// for the source's graphics::display::Display.
type Framebuffer interface {
	Size() int64
	CopyAt(offset int64, data []byte)
	Flip()
}

// ErrReadNotSupported is returned by Read; the source itself returns
// None ("not sure what to return here") rather than defining any real
// read semantics for a display.
var ErrReadNotSupported = errors.New("displayscheme: read not supported")

// ErrNoDuplicate is returned by Dup: the source's comment is explicit
// that duplicating a display was never given a meaning.
var ErrNoDuplicate = errors.New("displayscheme: display resources cannot be duplicated")

// ErrNoFramebuffer is returned by Open when no root framebuffer was
// configured.
var ErrNoFramebuffer = errors.New("displayscheme: no root framebuffer")

// Resource is one open display:// resource.
type Resource struct {
	fb   Framebuffer
	seek int64
}

// NewResource wraps fb as a display resource with its cursor at 0.
func NewResource(fb Framebuffer) *Resource {
	return &Resource{fb: fb}
}

func (r *Resource) Read(buf []byte) (int, error) {
	return 0, ErrReadNotSupported
}

// Write copies min(remaining framebuffer space, len(buf)) bytes to the
// framebuffer at the current seek position and advances it.
func (r *Resource) Write(buf []byte) (int, error) {
	remaining := r.fb.Size() - r.seek
	if remaining < 0 {
		remaining = 0
	}
	size := int64(len(buf))
	if size > remaining {
		size = remaining
	}
	if size > 0 {
		r.fb.CopyAt(r.seek, buf[:size])
	}
	r.seek += size
	return int(size), nil
}

// SeekWhence selects the origin for Seek.
type SeekWhence int

const (
	SeekStart SeekWhence = iota
	SeekCurrent
	SeekEnd
)

// Seek repositions the cursor, clamped to [0, framebuffer size].
//
// The source composes min(end, max(0, offset)) over an offset typed as
// usize, making the max(0, ...) clamp tautological — offset can never
// be negative. This port uses a signed offset so the lower clamp is
// real, matching the documented fix for that inconsistency.
func (r *Resource) Seek(whence SeekWhence, offset int64) int64 {
	end := r.fb.Size()
	var target int64
	switch whence {
	case SeekStart:
		target = offset
	case SeekCurrent:
		target = r.seek + offset
	case SeekEnd:
		target = end + offset
	}
	if target < 0 {
		target = 0
	}
	if target > end {
		target = end
	}
	r.seek = target
	return r.seek
}

// Sync flips the framebuffer to present it.
func (r *Resource) Sync() error {
	r.fb.Flip()
	return nil
}

// Dup always fails; a display resource cannot be meaningfully
// duplicated.
func (r *Resource) Dup() (*Resource, error) {
	return nil, ErrNoDuplicate
}

func (r *Resource) Close() error { return nil }

func (r *Resource) URL() string { return "display://" }

// Scheme opens display:// resources, always against the same root
// framebuffer.
type Scheme struct {
	fb Framebuffer
}

// New returns a Scheme bound to the given root framebuffer.
func New(fb Framebuffer) *Scheme {
	return &Scheme{fb: fb}
}

// Open ignores the URL's path entirely, matching the source's Open,
// which returns the same root display resource regardless of what was
// asked for.
func (s *Scheme) Open(url string) (*Resource, error) {
	if s.fb == nil {
		return nil, ErrNoFramebuffer
	}
	return NewResource(s.fb), nil
}
