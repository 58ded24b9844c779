// Package content serves sync items from a directory of Markdown files.
package content

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// FileSource implements the content source contract over a directory tree.
// Item ids are slash-separated paths relative to the root, which keeps them
// stable across machines.
type FileSource struct {
	root string
}

var _ vsync.ContentSource = (*FileSource)(nil)

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{root: dir}
}

// ListPublishedItems walks the tree and returns the ids of all published
// items whose filename matches the suffix filter, sorted for stable job
// ordering. An empty filter defaults to ".md".
func (s *FileSource) ListPublishedItems(ctx context.Context, itemFilter string) ([]string, error) {
	if itemFilter == "" {
		itemFilter = ".md"
	}

	var ids []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			// skip hidden directories
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), itemFilter) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)

		item, err := s.load(id)
		if err != nil {
			return err
		}
		if item.Published {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(ids)
	return ids, nil
}

// GetItem loads one item by id. Returns nil when the file does not exist.
func (s *FileSource) GetItem(ctx context.Context, itemID string) (*vsync.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// refuse ids escaping the root
	clean := filepath.Clean(filepath.FromSlash(itemID))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, nil
	}

	item, err := s.load(itemID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// frontmatter is the YAML header recognized on content files.
type frontmatter struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
	Draft bool   `yaml:"draft"`
}

func (s *FileSource) load(itemID string) (*vsync.Item, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(itemID)))
	if err != nil {
		return nil, err
	}

	fm, body := splitFrontmatter(string(raw))
	title := fm.Title
	if title == "" {
		title = firstHeading(body)
	}

	return &vsync.Item{
		ID:        itemID,
		Title:     title,
		Body:      body,
		URL:       fm.URL,
		Published: !fm.Draft,
	}, nil
}

// splitFrontmatter separates an optional YAML frontmatter block from the
// body. Malformed YAML is ignored rather than failing the item.
func splitFrontmatter(content string) (frontmatter, string) {
	var fm frontmatter
	if !strings.HasPrefix(content, "---\n") {
		return fm, content
	}
	endIdx := strings.Index(content[4:], "\n---")
	if endIdx < 0 {
		return fm, content
	}

	header := content[4 : 4+endIdx]
	body := strings.TrimPrefix(content[4+endIdx+4:], "\n")
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		fm = frontmatter{}
	}
	return fm, body
}

var h1Regex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// firstHeading returns the first h1 text, if any.
func firstHeading(content string) string {
	if match := h1Regex.FindStringSubmatch(content); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}
