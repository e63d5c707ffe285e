package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vimeoscan/internal/ranges"
)

type staticLog struct {
	names []string
	err   error
}

func (s staticLog) Resources(context.Context) ([]string, error) { return s.names, s.err }

func TestResourceLogsConcatenates(t *testing.T) {
	logs := resourceLogs{
		staticLog{names: []string{"https://h/a.mp4"}},
		staticLog{err: errors.New("tab closed")},
		staticLog{names: []string{"https://h/b.m4a"}},
	}
	names, err := logs.Resources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://h/a.mp4", "https://h/b.m4a"}, names)
}

func TestResourceLogsAllFailing(t *testing.T) {
	logs := resourceLogs{staticLog{err: errors.New("first")}, staticLog{err: errors.New("second")}}
	_, err := logs.Resources(context.Background())
	assert.EqualError(t, err, "first")
}

func TestUniqueNames(t *testing.T) {
	plans := []ranges.Plan{
		{BaseURL: "https://h/1/avf/seg.mp4"},
		{BaseURL: "https://h/2/avf/seg.mp4"},
		{BaseURL: "https://h/audio/track.m4a"},
		{BaseURL: "https://h/3/avf/seg.mp4"},
	}
	assert.Equal(t, []string{"seg.mp4", "seg-2.mp4", "track.m4a", "seg-3.mp4"}, uniqueNames(plans))
}

func TestPageArg(t *testing.T) {
	u, err := pageArg([]string{"https://school.example/l/1"}, false)
	require.NoError(t, err)
	assert.Equal(t, "https://school.example/l/1", u)

	u, err = pageArg(nil, true)
	require.NoError(t, err)
	assert.Empty(t, u)
}

type recordingClipboard struct {
	texts []string
	err   error
}

func (r *recordingClipboard) WriteAll(text string) error {
	if r.err != nil {
		return r.err
	}
	r.texts = append(r.texts, text)
	return nil
}

func TestCopyAt(t *testing.T) {
	urls := []string{"https://h/a.mp4", "https://h/audio/b.m4a"}
	cb := &recordingClipboard{}
	var out bytes.Buffer

	require.NoError(t, copyAt(&out, cb, urls, 1))
	assert.Equal(t, []string{"https://h/audio/b.m4a"}, cb.texts)
	assert.Contains(t, out.String(), "URL [1] copied")
}

func TestCopyAtOutOfRangeDoesNothing(t *testing.T) {
	urls := []string{"https://h/a.mp4"}
	for _, idx := range []int{-1, 1, 42} {
		cb := &recordingClipboard{}
		var out bytes.Buffer

		assert.NoError(t, copyAt(&out, cb, urls, idx), "index %d", idx)
		assert.Empty(t, cb.texts, "index %d", idx)
		assert.Empty(t, out.String(), "index %d", idx)
	}
}

func TestCopyAtClipboardFailurePrintsURL(t *testing.T) {
	cb := &recordingClipboard{err: errors.New("no xclip")}
	var out bytes.Buffer

	err := copyAt(&out, cb, []string{"https://h/a.mp4"}, 0)
	require.Error(t, err)
	assert.Equal(t, "https://h/a.mp4\n", out.String())
}
