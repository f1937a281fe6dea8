package container

import (
	"github.com/quillhub/backend/internal/database"
)

// TestJWTSecret signs tokens in containers built by NewTest
const TestJWTSecret = "test-secret"

// NewTest builds a container on a fresh in-memory sqlite database without
// Redis or Elasticsearch
func NewTest() (*Container, error) {
	db, err := database.NewTestDB()
	if err != nil {
		return nil, err
	}
	return Build(db, Options{JWTSecret: []byte(TestJWTSecret)})
}
