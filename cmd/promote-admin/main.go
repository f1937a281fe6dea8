package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/quillhub/backend/internal/config"
	"github.com/quillhub/backend/internal/database"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/repository"
)

func main() {
	email := flag.String("email", "", "Email address of user to promote to admin")
	revoke := flag.Bool("revoke", false, "Revoke admin privileges instead of granting")
	flag.Parse()

	if *email == "" {
		fmt.Println("Usage: promote-admin -email=user@example.com")
		fmt.Println("       promote-admin -email=user@example.com -revoke")
		os.Exit(2)
	}

	if err := run(*email, *revoke); err != nil {
		fmt.Fprintf(os.Stderr, "promote-admin: %v\n", err)
		os.Exit(1)
	}
}

func run(email string, revoke bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize("warn", ""); err != nil {
		return err
	}
	defer logger.Close()

	if err := database.Initialize(cfg.Database, cfg.IsDevelopment()); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	return setRole(context.Background(), repository.NewUserRepository(database.DB), email, revoke)
}

func setRole(ctx context.Context, users repository.UserRepository, email string, revoke bool) error {
	user, err := users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("user not found: %s", email)
	}
	if err != nil {
		return err
	}

	role := models.RoleAdmin
	if revoke {
		role = models.RoleUser
	}
	if user.Role == role {
		fmt.Printf("User %s already has role %q\n", user.Username, role)
		return nil
	}

	if err := users.SetRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	if revoke {
		fmt.Printf("Admin privileges revoked for %s (%s)\n", user.Username, user.Email)
	} else {
		fmt.Printf("Admin privileges granted to %s (%s)\n", user.Username, user.Email)
		fmt.Printf("  User ID: %d\n", user.ID)
	}
	fmt.Println("  The user must log in again for the change to take effect")
	return nil
}
