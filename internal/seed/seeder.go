package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/quillhub/backend/internal/comments"
	"github.com/quillhub/backend/internal/container"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/reactions"
	"github.com/quillhub/backend/internal/repository"
	"github.com/quillhub/backend/internal/search"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// Counts sizes a seeding run
type Counts struct {
	Users     int
	Posts     int
	Comments  int
	Reactions int
}

// DevCounts is the default size for a development database
var DevCounts = Counts{Users: 50, Posts: 200, Comments: 600, Reactions: 1500}

// Seeder fills the database through the domain services, so seeded
// comments and reactions produce the same notifications real traffic does
type Seeder struct {
	app *container.Container
	rnd *rand.Rand
}

// NewSeeder creates a new seeder instance
func NewSeeder(app *container.Container) *Seeder {
	seed := time.Now().UnixNano()
	_ = gofakeit.Seed(seed)
	return &Seeder{app: app, rnd: rand.New(rand.NewSource(seed))}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context, n Counts) error {
	log := logger.Log

	log.Info("Creating users...", zap.Int("count", n.Users))
	users, err := s.seedUsers(ctx, n.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log.Info("Creating posts...", zap.Int("count", n.Posts))
	posts, err := s.seedPosts(ctx, users, n.Posts)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	log.Info("Creating comments...", zap.Int("count", n.Comments))
	list, err := s.seedComments(ctx, users, posts, n.Comments)
	if err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	log.Info("Creating reactions...", zap.Int("count", n.Reactions))
	if err := s.seedReactions(ctx, users, posts, list, n.Reactions); err != nil {
		return fmt.Errorf("failed to seed reactions: %w", err)
	}

	s.reindex(ctx)
	return nil
}

// SeedTest creates a small fixed set of accounts plus a few posts
func (s *Seeder) SeedTest(ctx context.Context) error {
	fixtures := []struct {
		username string
		name     string
		role     string
	}{
		{"alice", "Alice Smith", models.RoleAdmin},
		{"bob", "Bob Johnson", models.RoleUser},
		{"charlie", "Charlie Brown", models.RoleUser},
		{"diana", "Diana Prince", models.RoleUser},
		{"eve", "Eve Wilson", models.RoleUser},
	}

	hash, err := hashPassword()
	if err != nil {
		return err
	}

	users := make([]models.User, 0, len(fixtures))
	for _, f := range fixtures {
		email := f.username + "@example.com"
		existing, err := s.app.Users().GetUserByEmail(ctx, email)
		if err == nil {
			users = append(users, *existing)
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("lookup test user %s: %w", f.username, err)
		}

		u := models.User{
			Email:        email,
			Username:     f.username,
			Name:         f.name,
			PasswordHash: hash,
			Role:         f.role,
		}
		if err := s.app.Users().CreateUser(ctx, &u); err != nil {
			return fmt.Errorf("failed to create test user %s: %w", f.username, err)
		}
		users = append(users, u)
	}

	posts, err := s.seedPosts(ctx, users, 5)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	if _, err := s.seedComments(ctx, users, posts, 10); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	s.reindex(ctx)
	return nil
}

// Clean removes all data (use with caution!)
func (s *Seeder) Clean() error {
	db := s.app.DB()
	// reverse dependency order
	for _, table := range []string{"notifications", "reactions", "comments", "posts", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func hashPassword() (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	// every seeded account shares one hash; bcrypt per user is too slow
	hash, err := hashPassword()
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count)
	for len(users) < count {
		username := strings.ToLower(gofakeit.Username())
		u := models.User{
			Email:        username + "@example.com",
			Username:     username,
			Name:         gofakeit.Name(),
			Bio:          gofakeit.HipsterSentence(),
			PasswordHash: hash,
			Role:         models.RoleUser,
		}
		if err := s.app.Users().CreateUser(ctx, &u); err != nil {
			if errors.Is(err, repository.ErrUserExists) {
				continue
			}
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User, count int) ([]models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}

	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.rnd.Intn(len(users))]
		title := gofakeit.BookTitle()
		if s.rnd.Float32() < 0.5 {
			title = gofakeit.Sentence(s.rnd.Intn(6) + 3)
		}
		content := gofakeit.Paragraph(s.rnd.Intn(4)+1, 4, 12, "\n\n")

		post, err := s.app.Posts().Create(ctx, author.ID, title, content)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

func (s *Seeder) seedComments(ctx context.Context, users []models.User, posts []models.Post, count int) ([]models.Comment, error) {
	if len(users) == 0 || len(posts) == 0 {
		return nil, nil
	}

	templates := []string{
		"Great read, thanks for writing this",
		"I disagree with the second point",
		"Bookmarked for later",
		"Could you expand on this?",
		"This matches what we saw in production",
	}

	list := make([]models.Comment, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.rnd.Intn(len(users))]
		post := posts[s.rnd.Intn(len(posts))]

		text := gofakeit.HipsterSentence()
		if s.rnd.Float32() < 0.4 {
			text = templates[s.rnd.Intn(len(templates))]
		}
		// sprinkle in mentions so the mention path gets exercised
		if s.rnd.Float32() < 0.2 {
			other := users[s.rnd.Intn(len(users))]
			text = fmt.Sprintf("@%s %s", other.Username, text)
		}

		c, err := s.app.Comments().Create(ctx, author.ID, post.ID, text, comments.SourceHTTP)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, nil
}

func (s *Seeder) seedReactions(ctx context.Context, users []models.User, posts []models.Post, list []models.Comment, count int) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	for i := 0; i < count; i++ {
		actor := users[s.rnd.Intn(len(users))]
		kind := reactions.KindPost
		targetID := posts[s.rnd.Intn(len(posts))].ID
		if len(list) > 0 && s.rnd.Float32() < 0.3 {
			kind = reactions.KindComment
			targetID = list[s.rnd.Intn(len(list))].ID
		}
		types := reactions.Types(kind)

		if _, err := s.app.Reactions().React(ctx, actor.ID, kind, targetID, types[s.rnd.Intn(len(types))]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) reindex(ctx context.Context) {
	n, err := s.app.Search().Reindex(ctx)
	if errors.Is(err, search.ErrDisabled) {
		return
	}
	if err != nil {
		logger.Log.Warn("Failed to reindex posts after seeding", zap.Error(err))
		return
	}
	logger.Log.Info("Reindexed posts", zap.Int("count", n))
}
