package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/vecsync-go/internal/models"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// CollectionSet holds the collections loaded from the YAML config file and
// serves lookups by id.
type CollectionSet struct {
	byID  map[string]*models.Collection
	order []string
}

var _ vsync.Collections = (*CollectionSet)(nil)

type collectionsFile struct {
	Collections []models.Collection `yaml:"collections"`
}

// LoadCollections reads the collections YAML file.
func LoadCollections(path string) (*CollectionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collections file: %w", err)
	}
	return ParseCollections(data)
}

// ParseCollections parses collections YAML.
func ParseCollections(data []byte) (*CollectionSet, error) {
	var file collectionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse collections: %w", err)
	}
	if len(file.Collections) == 0 {
		return nil, fmt.Errorf("no collections defined")
	}

	set := &CollectionSet{byID: map[string]*models.Collection{}}
	for i := range file.Collections {
		col := &file.Collections[i]
		if col.ID == "" {
			return nil, fmt.Errorf("collection #%d has no id", i+1)
		}
		if _, dup := set.byID[col.ID]; dup {
			return nil, fmt.Errorf("duplicate collection id %q", col.ID)
		}
		set.byID[col.ID] = col
		set.order = append(set.order, col.ID)
	}
	return set, nil
}

// Get resolves a collection by id.
func (s *CollectionSet) Get(collectionID string) (*models.Collection, error) {
	col, ok := s.byID[collectionID]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collectionID)
	}
	return col, nil
}

// IDs returns all collection ids in file order.
func (s *CollectionSet) IDs() []string {
	return s.order
}

// Default returns the first collection in the file.
func (s *CollectionSet) Default() *models.Collection {
	if len(s.order) == 0 {
		return nil
	}
	return s.byID[s.order[0]]
}
