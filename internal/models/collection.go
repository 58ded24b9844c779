package models

// Collection groups content items synced into one remote vector store.
// Collections are configuration, not database rows; they come from the
// collections YAML file.
type Collection struct {
	ID string `yaml:"id"`
	// StoreName is the remote vector store name; defaults to the id.
	StoreName string `yaml:"store_name"`
	// ItemFilter selects which items the content source serves for this
	// collection (for the filesystem source: a file suffix like ".md").
	ItemFilter string `yaml:"item_filter"`
}

// Store returns the remote vector store name for the collection.
func (c *Collection) Store() string {
	if c.StoreName != "" {
		return c.StoreName
	}
	return c.ID
}
