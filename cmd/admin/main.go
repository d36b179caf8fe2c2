// Command admin creates or updates a back-office account.
//
//	go run ./cmd/admin -email ops@academy.dev -name "Ops" -role SUPERADMIN
//
// The password is read from ADMIN_PASSWORD when -password is omitted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/mail"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/academy-portal-api/internal/models"
	"github.com/noah-isme/academy-portal-api/internal/repository"
	"github.com/noah-isme/academy-portal-api/pkg/config"
	"github.com/noah-isme/academy-portal-api/pkg/database"
	"github.com/noah-isme/academy-portal-api/pkg/logger"
)

const minPasswordLength = 8

type userUpserter interface {
	Upsert(ctx context.Context, user *models.User) error
}

type adminInput struct {
	Email    string
	FullName string
	Role     string
	Password string
	Inactive bool
}

func main() {
	var in adminInput
	flag.StringVar(&in.Email, "email", "", "admin email (required)")
	flag.StringVar(&in.FullName, "name", "", "display name")
	flag.StringVar(&in.Role, "role", string(models.RoleAdmin), "SUPERADMIN, ADMIN or EDITOR")
	flag.StringVar(&in.Password, "password", "", "password; defaults to $ADMIN_PASSWORD")
	flag.BoolVar(&in.Inactive, "inactive", false, "store the account as disabled")
	flag.Parse()

	if in.Password == "" {
		in.Password = os.Getenv("ADMIN_PASSWORD")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	user, err := upsertAdmin(ctx, repository.NewUserRepository(db), in, bcrypt.DefaultCost)
	if err != nil {
		logr.Fatal("upsert admin", zap.Error(err))
	}
	logr.Info("admin account saved", zap.String("id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
}

func upsertAdmin(ctx context.Context, repo userUpserter, in adminInput, cost int) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email %q", in.Email)
	}
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(in.Role)))
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(in.FullName)
	if name == "" {
		name = email
	}
	user := &models.User{
		Email:        email,
		FullName:     name,
		Role:         role,
		PasswordHash: string(hash),
		Active:       !in.Inactive,
	}
	if err := repo.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
