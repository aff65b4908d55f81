package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachmentIdentityPriority(t *testing.T) {
	t.Run("id wins over everything", func(t *testing.T) {
		att := Attachment{ID: "123", URL: "https://cdn/x", ProxyURL: "https://proxy/x", Filename: "a.mp3", Size: 10}
		assert.Equal(t, "id:123", AttachmentIdentity(att))
	})

	t.Run("url when id missing", func(t *testing.T) {
		att := Attachment{URL: "https://cdn/x", Filename: "a.mp3", Size: 10}
		assert.Equal(t, "url:https://cdn/x", AttachmentIdentity(att))
	})

	t.Run("proxy url next", func(t *testing.T) {
		att := Attachment{ProxyURL: "https://proxy/x", Filename: "a.mp3"}
		assert.Equal(t, "proxy:https://proxy/x", AttachmentIdentity(att))
	})

	t.Run("filename plus size", func(t *testing.T) {
		att := Attachment{Filename: "a.mp3", Size: 4096}
		assert.Equal(t, "file:a.mp3:4096", AttachmentIdentity(att))
	})

	t.Run("filename alone", func(t *testing.T) {
		assert.Equal(t, "name:a.mp3", AttachmentIdentity(Attachment{Filename: "a.mp3"}))
	})

	t.Run("anonymous when nothing is present", func(t *testing.T) {
		assert.Equal(t, "anon", AttachmentIdentity(Attachment{}))
	})
}

func TestAttachmentIdentityDistinguishesFiles(t *testing.T) {
	a := Attachment{Filename: "memo.mp3", Size: 100}
	b := Attachment{Filename: "memo2.mp3", Size: 100}
	c := Attachment{Filename: "memo.mp3", Size: 200}

	assert.NotEqual(t, AttachmentIdentity(a), AttachmentIdentity(b))
	assert.NotEqual(t, AttachmentIdentity(a), AttachmentIdentity(c))
}

func TestIdentityFromRaw(t *testing.T) {
	t.Run("matches typed identity for id", func(t *testing.T) {
		typed := AttachmentIdentity(Attachment{ID: "42"})
		raw := IdentityFromRaw(map[string]any{"id": "42", "url": "https://cdn/x"})
		assert.Equal(t, typed, raw)
	})

	t.Run("numeric id decoded from JSON", func(t *testing.T) {
		assert.Equal(t, "id:42", IdentityFromRaw(map[string]any{"id": float64(42)}))
	})

	t.Run("filename and size", func(t *testing.T) {
		raw := IdentityFromRaw(map[string]any{"filename": "a.mp3", "size": 4096})
		assert.Equal(t, "file:a.mp3:4096", raw)
	})

	t.Run("snapshot fallback is deterministic", func(t *testing.T) {
		m := map[string]any{"width": 1, "height": 2}
		assert.Equal(t, IdentityFromRaw(m), IdentityFromRaw(m))
		assert.Contains(t, IdentityFromRaw(m), "snapshot:")
	})
}
