package bot

import (
	"fmt"
	"sort"
	"strings"
)

// AttachmentIdentity derives a stable dedup key for an attachment.
// Priority: id, then url, then proxy_url, then (filename, size), then
// filename alone. The key is opaque; callers only compare it.
func AttachmentIdentity(att Attachment) string {
	switch {
	case att.ID != "":
		return "id:" + att.ID
	case att.URL != "":
		return "url:" + att.URL
	case att.ProxyURL != "":
		return "proxy:" + att.ProxyURL
	case att.Filename != "" && att.Size > 0:
		return fmt.Sprintf("file:%s:%d", att.Filename, att.Size)
	case att.Filename != "":
		return "name:" + att.Filename
	default:
		return "anon"
	}
}

// IdentityFromRaw derives the same key from untyped attachment metadata,
// used when only a raw map survived serialization. Falls back to a sorted
// snapshot of the whole map when no recognized field is present.
func IdentityFromRaw(raw map[string]any) string {
	if v := rawString(raw, "id"); v != "" {
		return "id:" + v
	}
	if v := rawString(raw, "url"); v != "" {
		return "url:" + v
	}
	if v := rawString(raw, "proxy_url"); v != "" {
		return "proxy:" + v
	}
	filename := rawString(raw, "filename")
	if filename != "" {
		if size, ok := raw["size"]; ok {
			return fmt.Sprintf("file:%s:%v", filename, size)
		}
		return "name:" + filename
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("snapshot:")
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%v;", k, raw[k])
	}
	return sb.String()
}

func rawString(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; Discord snowflakes are integers
		return fmt.Sprintf("%.0f", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}
