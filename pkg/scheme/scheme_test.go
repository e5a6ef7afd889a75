package scheme_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redox-rs/schemeio/pkg/scheme"
)

func TestVecResourceReadAndSeek(t *testing.T) {
	v := scheme.NewVecResource("file:///list", []byte("abcdef"))

	buf := make([]byte, 3)
	n, err := v.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))

	_, err = v.Seek(scheme.SeekStart, 0)
	require.NoError(t, err)
	n, err = v.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))

	_, err = v.Seek(scheme.SeekEnd, 0)
	require.NoError(t, err)
	_, err = v.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestVecResourceWriteFails(t *testing.T) {
	v := scheme.NewVecResource("file:///list", []byte("x"))
	_, err := v.Write([]byte("y"))
	assert.Error(t, err)
}

type stubScheme struct{ url string }

func (s *stubScheme) Open(url string) (scheme.Resource, error) {
	s.url = url
	return scheme.NewVecResource(url, nil), nil
}

func TestRegistryDispatchesByPrefix(t *testing.T) {
	r := scheme.NewRegistry()
	fileScheme := &stubScheme{}
	r.Register("file", fileScheme)

	res, err := r.Open("file:///hello")
	require.NoError(t, err)
	assert.Equal(t, "file:///hello", res.URL())
	assert.Equal(t, "file:///hello", fileScheme.url)
}

func TestRegistryRejectsUnknownScheme(t *testing.T) {
	r := scheme.NewRegistry()
	_, err := r.Open("tcp://10.0.0.1:80")
	assert.ErrorIs(t, err, scheme.ErrUnknownScheme)
}
