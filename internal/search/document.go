package search

import (
	"strconv"
	"time"

	"github.com/quillhub/backend/internal/models"
)

// PostDocument is the indexed form of a post. Only what the title search
// returns is stored; the body stays in the database.
type PostDocument struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	AuthorID  uint      `json:"author_id"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPostDocument converts a post; Author is optional
func NewPostDocument(post *models.Post) PostDocument {
	doc := PostDocument{
		ID:        post.ID,
		Title:     post.Title,
		AuthorID:  post.AuthorID,
		CreatedAt: post.CreatedAt.UTC(),
	}
	if post.Author != nil {
		doc.Username = post.Author.Username
	}
	return doc
}

func (d PostDocument) docID() string {
	return strconv.FormatUint(uint64(d.ID), 10)
}

// postMapping is the index body for IndexPosts. _meta.version is compared
// against IndexVersion to detect stale mappings.
func postMapping() map[string]interface{} {
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"_meta": map[string]interface{}{
				"version": IndexVersion,
			},
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type": "long",
				},
				"title": map[string]interface{}{
					"type":     "text",
					"analyzer": "standard",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{
							"type":         "keyword",
							"ignore_above": 256,
						},
					},
				},
				"author_id": map[string]interface{}{
					"type": "long",
				},
				"username": map[string]interface{}{
					"type": "keyword",
				},
				"created_at": map[string]interface{}{
					"type": "date",
				},
			},
		},
	}
}
