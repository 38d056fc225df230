// Package file stores scripts on the local filesystem.
//
// Layout:
//
//	scripts/<name>/script.json     current format
//	scripts/<name>/images/...      template images copied on save
//	scripts/<name>.json            legacy format, read-only fallback
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/compiler"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

const (
	// DefaultScriptsDir is where scripts live when no directory is configured.
	DefaultScriptsDir = "scripts"
	// DefaultImagesDir is the global template image library.
	DefaultImagesDir = "images"

	scriptFile   = "script.json"
	imagesSubdir = "images"
	imagesPrefix = "images/"
	legacySuffix = ".json"
	filePerm     = 0644
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true}

// Store implements ports.ScriptStore and ports.TemplateResolver.
type Store struct {
	BasePath  string
	ImagesDir string
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithImagesDir sets the global image library.
func WithImagesDir(dir string) Option {
	return func(s *Store) {
		s.ImagesDir = dir
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Store rooted at basePath (default "scripts").
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = DefaultScriptsDir
	}
	s := &Store{BasePath: basePath, ImagesDir: DefaultImagesDir}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

func (s *Store) folder(name string) string {
	return filepath.Join(s.BasePath, name)
}

func (s *Store) legacy(name string) string {
	return filepath.Join(s.BasePath, name+legacySuffix)
}

// Save writes scripts/<name>/script.json atomically, copies the template images
// the graph references into the script folder and removes any legacy file.
func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	if err := WriteAtomic(filepath.Join(s.folder(name), scriptFile), data, filePerm); err != nil {
		return fmt.Errorf("save script %q: %w", name, err)
	}

	if nodes, err := compiler.Parse(data); err == nil {
		refs := compiler.TemplateRefs(nodes)
		if len(refs) > 0 {
			copied := s.copyImages(name, refs)
			s.logger.Info("Copied images to script folder", "script", name, "found", len(refs), "copied", copied)
		}
	} else {
		s.logger.Debug("Saved script is not a graph; skipping image copy", "script", name, "err", err)
	}

	if err := os.Remove(s.legacy(name)); err == nil {
		s.logger.Info("Removed legacy file", "script", name)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove legacy script %q: %w", name, err)
	}
	return nil
}

// copyImages copies global images into the script folder and returns how many were copied.
// Missing sources are skipped.
func (s *Store) copyImages(name string, refs []string) int {
	copied := 0
	for _, ref := range refs {
		rel, ok := relativeImage(ref)
		if !ok {
			continue
		}
		src := filepath.Join(s.ImagesDir, rel)
		dst := filepath.Join(s.folder(name), imagesSubdir, rel)
		if err := copyFile(src, dst); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("Failed to copy image", "image", rel, "err", err)
			}
			continue
		}
		copied++
	}
	return copied
}

// relativeImage strips the "images/" prefix and rejects paths escaping the library.
func relativeImage(ref string) (string, bool) {
	ref = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(ref)), imagesPrefix)
	if ref == "" || filepath.IsAbs(ref) {
		return "", false
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	return clean, true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Load reads the folder format first, then the legacy file.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if err := domain.ValidateScriptName(name); err != nil {
		return nil, err
	}
	for _, path := range []string{filepath.Join(s.folder(name), scriptFile), s.legacy(name)} {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read script file: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
}

// Delete removes the script folder, or the legacy file when there is no folder.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	if info, err := os.Stat(s.folder(name)); err == nil && info.IsDir() {
		if err := os.RemoveAll(s.folder(name)); err != nil {
			return fmt.Errorf("failed to delete script folder: %w", err)
		}
		return nil
	}
	err := os.Remove(s.legacy(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete script file: %w", err)
	}
	return nil
}

// List reports scripts in both formats, sorted and deduplicated.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, entry := range entries {
		var name string
		switch {
		case entry.IsDir():
			if _, err := os.Stat(filepath.Join(s.BasePath, entry.Name(), scriptFile)); err != nil {
				continue
			}
			name = entry.Name()
		case strings.HasSuffix(entry.Name(), legacySuffix):
			name = strings.TrimSuffix(entry.Name(), legacySuffix)
		default:
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ResolveTemplate prefers the copy stored with script, then the global library.
func (s *Store) ResolveTemplate(script, template string) string {
	if filepath.IsAbs(template) {
		return template
	}
	rel, ok := relativeImage(template)
	if !ok {
		return template
	}
	if script != "" && domain.ValidateScriptName(script) == nil {
		local := filepath.Join(s.folder(script), imagesSubdir, rel)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}
	return filepath.Join(s.ImagesDir, rel)
}

// Images lists the global image library as slash-separated paths prefixed with "images/".
func (s *Store) Images() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.ImagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(s.ImagesDir, path)
		if err != nil {
			return err
		}
		out = append(out, imagesPrefix+filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
