package bot

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// DownloaderConfig bounds what the downloader will fetch
type DownloaderConfig struct {
	AllowedHosts   []string
	MaxBytes       int64
	Timeout        time.Duration
	MaxIdleConns   int
	MaxPerHost     int
}

// Downloader fetches attachment payloads with a strict security contract:
// allow-listed hosts only, a hard size cap enforced before and during
// transfer, an audio MIME allow-list, and magic-byte verification of the
// downloaded content. Every rejection returns nil and logs the reason;
// nothing is raised to the caller.
type Downloader struct {
	client       *http.Client
	allowedHosts map[string]bool
	maxBytes     int64
	logger       *logger.Logger
}

// NewDownloader creates a downloader with the given limits
func NewDownloader(cfg DownloaderConfig, log *logger.Logger) *Downloader {
	hosts := make(map[string]bool, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		hosts[strings.ToLower(h)] = true
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 50 * 1024 * 1024
	}

	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	maxPerHost := cfg.MaxPerHost
	if maxPerHost <= 0 {
		maxPerHost = 5
	}

	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxIdle,
				MaxIdleConnsPerHost: maxPerHost,
			},
		},
		allowedHosts: hosts,
		maxBytes:     maxBytes,
		logger:       log.Named("downloader"),
	}
}

// allowedMIME matches the audio content types Discord serves for voice memos
// and music files. Octet-stream is accepted because Discord frequently tags
// audio that way; magic-byte verification still applies afterwards.
func allowedMIME(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if strings.HasPrefix(ct, "audio/") {
		return true
	}
	switch ct {
	case "application/ogg", "video/webm", "application/octet-stream":
		return true
	}
	return false
}

// hasAudioMagic verifies the payload starts with a known audio container
// signature: OGG, MP3 (frame sync or ID3), WAV RIFF, WebM/Matroska EBML,
// M4A/MP4 ftyp, or FLAC
func hasAudioMagic(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	switch {
	case string(data[0:4]) == "OggS":
		return true
	case string(data[0:3]) == "ID3":
		return true
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0: // MP3 frame sync
		return true
	case string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return true
	case data[0] == 0x1A && data[1] == 0x45 && data[2] == 0xDF && data[3] == 0xA3: // EBML
		return true
	case string(data[4:8]) == "ftyp":
		return true
	case string(data[0:4]) == "fLaC":
		return true
	}
	return false
}

// Download fetches the attachment at rawURL. Returns nil on any rejection.
func (d *Downloader) Download(ctx context.Context, rawURL string) []byte {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "https" {
		d.logger.Warn("Rejected attachment URL", String("url", rawURL))
		return nil
	}

	host := strings.ToLower(parsed.Hostname())
	if !d.allowedHosts[host] {
		d.logger.Warn("Rejected attachment from untrusted host",
			String("host", host))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		d.logger.Warn("Failed to build download request", Error(err))
		return nil
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("Attachment download failed", Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn("Attachment download returned non-OK status",
			Int("status_code", resp.StatusCode))
		return nil
	}

	// Pre-check declared size before reading anything
	if resp.ContentLength > 0 && resp.ContentLength > d.maxBytes {
		d.logger.Warn("Rejected oversized attachment",
			Int64("content_length", resp.ContentLength),
			Int64("max_bytes", d.maxBytes))
		return nil
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !allowedMIME(ct) {
		d.logger.Warn("Rejected attachment with non-audio content type",
			String("content_type", ct))
		return nil
	}

	// Enforce the cap during transfer too; Content-Length can lie
	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		d.logger.Warn("Error reading attachment body", Error(err))
		return nil
	}
	if int64(len(data)) > d.maxBytes {
		d.logger.Warn("Attachment exceeded size cap during transfer",
			Int64("max_bytes", d.maxBytes))
		return nil
	}

	if !hasAudioMagic(data) {
		d.logger.Warn("Rejected attachment with unrecognized file signature",
			Int("size_bytes", len(data)))
		return nil
	}

	d.logger.Debug("Attachment downloaded",
		String("host", host),
		Int("size_bytes", len(data)))

	return data
}
