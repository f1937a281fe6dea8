package search

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// IndexVersion tracks the post mapping. Increment it whenever postMapping
// changes; Reindex recreates an index carrying an older version.
const IndexVersion = 1

// CheckIndexVersion reports whether the index is missing or carries an
// older mapping version
func (c *Client) CheckIndexVersion(ctx context.Context) (bool, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithIndex(c.index),
		c.es.Indices.GetMapping.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to get index mapping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return true, nil
		}
		return false, fmt.Errorf("error getting index mapping: %s", res.Status())
	}

	var mappings map[string]struct {
		Mappings struct {
			Meta struct {
				Version int `json:"version"`
			} `json:"_meta"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&mappings); err != nil {
		return true, nil
	}

	entry, ok := mappings[c.index]
	if !ok {
		return true, nil
	}
	return entry.Mappings.Meta.Version < IndexVersion, nil
}

// DeleteIndex drops the post index; a missing index is not an error
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete(
		[]string{c.index},
		c.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("error deleting index: %s", res.Status())
	}
	return nil
}
