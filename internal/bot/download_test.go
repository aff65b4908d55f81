package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// oggPayload is a minimal buffer carrying the OGG magic signature
var oggPayload = append([]byte("OggS"), make([]byte, 64)...)

func newTestDownloader(t *testing.T, server *httptest.Server, maxBytes int64) *Downloader {
	t.Helper()

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)

	d := NewDownloader(DownloaderConfig{
		AllowedHosts: []string{parsed.Hostname()},
		MaxBytes:     maxBytes,
		Timeout:      5 * time.Second,
	}, logger.NewNop())

	// The test server uses a self-signed certificate
	d.client = server.Client()
	return d
}

func TestDownloadSuccess(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write(oggPayload)
	}))
	defer server.Close()

	d := newTestDownloader(t, server, 1024)

	data := d.Download(context.Background(), server.URL+"/voice-message.ogg")
	require.NotNil(t, data)
	assert.Equal(t, oggPayload, data)
}

func TestDownloadRejectsPlainHTTP(t *testing.T) {
	d := NewDownloader(DownloaderConfig{AllowedHosts: []string{"cdn.discordapp.com"}}, logger.NewNop())

	assert.Nil(t, d.Download(context.Background(), "http://cdn.discordapp.com/a.mp3"))
	assert.Nil(t, d.Download(context.Background(), "ftp://cdn.discordapp.com/a.mp3"))
}

func TestDownloadRejectsUntrustedHost(t *testing.T) {
	d := NewDownloader(DownloaderConfig{AllowedHosts: []string{"cdn.discordapp.com"}}, logger.NewNop())

	assert.Nil(t, d.Download(context.Background(), "https://evil.example.com/a.mp3"))
}

func TestDownloadRejectsOversizedDeclaredLength(t *testing.T) {
	big := append([]byte("OggS"), make([]byte, 2048)...)
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write(big)
	}))
	defer server.Close()

	d := newTestDownloader(t, server, 128)

	assert.Nil(t, d.Download(context.Background(), server.URL+"/a.ogg"))
}

func TestDownloadRejectsNonAudioContentType(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not audio</html>"))
	}))
	defer server.Close()

	d := newTestDownloader(t, server, 1024)

	assert.Nil(t, d.Download(context.Background(), server.URL+"/a.mp3"))
}

func TestDownloadRejectsBadMagicBytes(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Claims to be audio, carries no audio signature
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("this is definitely not an audio file"))
	}))
	defer server.Close()

	d := newTestDownloader(t, server, 1024)

	assert.Nil(t, d.Download(context.Background(), server.URL+"/a.mp3"))
}

func TestDownloadRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := newTestDownloader(t, server, 1024)

	assert.Nil(t, d.Download(context.Background(), server.URL+"/missing.mp3"))
}

func TestHasAudioMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"ogg", oggPayload, true},
		{"id3 tagged mp3", append([]byte("ID3"), make([]byte, 16)...), true},
		{"mp3 frame sync", append([]byte{0xFF, 0xFB}, make([]byte, 16)...), true},
		{"wav", append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 8)...), true},
		{"webm ebml", append([]byte{0x1A, 0x45, 0xDF, 0xA3}, make([]byte, 16)...), true},
		{"m4a ftyp", append([]byte("\x00\x00\x00\x20ftypM4A "), make([]byte, 8)...), true},
		{"flac", append([]byte("fLaC"), make([]byte, 16)...), true},
		{"html", []byte("<html><body>nope</body></html>"), false},
		{"too short", []byte("OggS"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasAudioMagic(tt.data))
		})
	}
}

func TestAllowedMIME(t *testing.T) {
	assert.True(t, allowedMIME("audio/ogg"))
	assert.True(t, allowedMIME("audio/mpeg; charset=binary"))
	assert.True(t, allowedMIME("application/ogg"))
	assert.True(t, allowedMIME("video/webm"))
	assert.True(t, allowedMIME("application/octet-stream"))
	assert.False(t, allowedMIME("text/html"))
	assert.False(t, allowedMIME("image/png"))
}
