package httputil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid HTTPS", "https://player.vimeo.com/video/1", false},
		{"HTTP rejected", "http://example.com/path", true},
		{"javascript scheme rejected", "javascript:alert(1)", true},
		{"data scheme rejected", "data:text/html,<h1>Hi</h1>", true},
		{"FTP rejected", "ftp://example.com/file", true},
		{"empty string", "", true},
		{"no host", "https://", true},
		{"valid with port", "https://example.com:8080/path", false},
		{"valid with query", "https://example.com/seg.mp4?range=0-1&pathsig=x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://h/a.mp4", StripQuery("https://h/a.mp4?pathsig=x&range=0-1"))
	assert.Equal(t, "https://h/a.mp4", StripQuery("https://h/a.mp4#t=3"))
	assert.Equal(t, "https://h/a.mp4", StripQuery("https://h/a.mp4"))
}

func TestFilenameFromURL(t *testing.T) {
	assert.Equal(t, "12345.mp4", FilenameFromURL("https://h/exp=1/range/prot/avf/12345.mp4?range=0-1", "x"))
	assert.Equal(t, "fallback.mp4", FilenameFromURL("https://h/", "fallback.mp4"))
	assert.Equal(t, "fallback.mp4", FilenameFromURL("::bad", "fallback.mp4"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal filename", "video.mp4", "video.mp4"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"directory components", "/home/user/secret.txt", "secret.txt"},
		{"shell metacharacters", "movie; rm -rf /.mp4", ".mp4"}, // filepath.Base strips to ".mp4"
		{"null bytes", "video\x00.mp4", "video.mp4"},
		{"Windows special chars", "video<>:\"|?*.mp4", "video_______.mp4"},
		{"double dots", "video..mp4", "video_mp4"},
		{"empty string", "", "untitled"},
		{"just dots", "..", "_"},
		{"just dot", ".", "untitled"},
		{"backslash traversal", "..\\..\\windows\\system32", "____windows_system32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSafeDownloadPath(t *testing.T) {
	tests := []struct {
		name     string
		dir      string
		filename string
		want     string
	}{
		{"normal", "/tmp/downloads", "video.mp4", "/tmp/downloads/video.mp4"},
		{"path traversal attempt", "/tmp/downloads", "../../etc/passwd", "/tmp/downloads/passwd"},
		{"shell injection", "/tmp/downloads", "$(whoami).mp4", "/tmp/downloads/$(whoami).mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := SafeDownloadPath(tt.dir, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
		})
	}
}

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(context.Background(), "https://h/a.mp4", Headers{
		UserAgent: "test-agent",
		Referer:   "https://player.vimeo.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "test-agent", req.Header.Get("User-Agent"))
	assert.Equal(t, "https://player.vimeo.com/", req.Header.Get("Referer"))
	assert.Equal(t, "identity", req.Header.Get("Accept-Encoding"))

	_, err = NewRequest(context.Background(), "http://h/a.mp4", Headers{})
	assert.Error(t, err)
}
