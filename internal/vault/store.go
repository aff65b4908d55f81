package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-yaml"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// Import the logger package's exported functions
var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)

// NoteMeta is the YAML frontmatter written at the top of every note
type NoteMeta struct {
	Title    string   `yaml:"title"`
	Date     string   `yaml:"date"`
	Category string   `yaml:"category,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
	Source   string   `yaml:"source"`
}

// Store writes audio files and markdown notes into an Obsidian vault.
// The vault is plain directories; Obsidian picks changes up by watching
// the filesystem.
type Store struct {
	root        string
	audioFolder string
	notesFolder string
	logger      *logger.Logger
	now         func() time.Time
}

// NewStore creates a vault store rooted at root. Subfolders are created
// lazily on first write.
func NewStore(root, audioSubfolder, notesSubfolder string, log *logger.Logger) *Store {
	return &Store{
		root:        root,
		audioFolder: audioSubfolder,
		notesFolder: notesSubfolder,
		logger:      log.Named("vault"),
		now:         time.Now,
	}
}

// FallbackFilename builds the on-disk name for a preserved audio file:
// a timestamp prefix, the sanitized original stem capped at 50 runes, and
// the original extension (defaulting to .mp3 when absent)
func FallbackFilename(original string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".mp3"
	}
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	stem = sanitizeStem(stem, 50)
	if stem == "" {
		stem = "audio"
	}
	return fmt.Sprintf("%s_%s%s", at.Format("20060102_150405"), stem, ext)
}

// sanitizeStem keeps letters, digits, hyphens and underscores, replacing
// everything else with underscores, and caps the result at maxRunes
func sanitizeStem(stem string, maxRunes int) string {
	var sb strings.Builder
	count := 0
	for _, r := range stem {
		if count >= maxRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
		count++
	}
	return strings.Trim(sb.String(), "_")
}

// SaveAudio writes audio bytes into the vault's audio folder and returns
// the absolute path of the saved file
func (s *Store) SaveAudio(filename string, data []byte) (string, error) {
	dir := filepath.Join(s.root, s.audioFolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio folder: %w", err)
	}

	path := filepath.Join(dir, FallbackFilename(filename, s.now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	s.logger.Info("Saved audio file to vault",
		String("path", path),
		Int("size_bytes", len(data)))
	return path, nil
}

// SaveNote writes a markdown note with YAML frontmatter into the notes
// folder. Category, when set, becomes a subfolder. Name collisions get a
// numeric suffix rather than overwriting.
func (s *Store) SaveNote(meta NoteMeta, body string) (string, error) {
	dir := filepath.Join(s.root, s.notesFolder)
	if meta.Category != "" {
		dir = filepath.Join(dir, sanitizeStem(meta.Category, 50))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create notes folder: %w", err)
	}

	fm, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	content := fmt.Sprintf("---\n%s---\n\n%s\n", fm, strings.TrimRight(body, "\n"))

	stem := sanitizeStem(meta.Title, 50)
	if stem == "" {
		stem = s.now().Format("20060102_150405")
	}

	path := filepath.Join(dir, stem+".md")
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.md", stem, i))
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write note: %w", err)
	}

	s.logger.Info("Saved note to vault", String("path", path))
	return path, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
