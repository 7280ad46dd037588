package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"nanum/internal/config"
	"nanum/internal/db"
	apperrors "nanum/internal/errors"
	"nanum/internal/logging"
	"nanum/internal/model"
	"nanum/internal/repository"
	"nanum/internal/service"
)

// defaultCategories are the boards every installation starts with.
var defaultCategories = []model.BoardCategory{
	{Slug: "notice", Name: "공지사항", SortOrder: 1},
	{Slug: "free", Name: "자유게시판", RequiresAuth: true, SortOrder: 2},
	{Slug: "members", Name: "회원게시판", RequiresAuth: true, RequiresApproval: true,
		AllowedRoles: model.RoleSet{model.RoleMember, model.RoleAdmin}, SortOrder: 3},
	{Slug: "staff", Name: "운영진", RequiresAuth: true, RequiresApproval: true,
		AllowedRoles: model.RoleSet{model.RoleAdmin}, SortOrder: 4},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	logger.Info(ctx, "starting seed script")

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}

	local := cfg.CredentialBackend != config.ProviderSupabase
	if err := db.Migrate(gormDB, local); err != nil {
		logger.Error(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "database migrations completed")

	categories := repository.NewCategoryRepository(gormDB)
	for i := range defaultCategories {
		c := defaultCategories[i]
		if err := categories.Upsert(ctx, &c); err != nil {
			logger.Error(ctx, "failed to seed category", "slug", c.Slug, "error", err)
			os.Exit(1)
		}
	}
	logger.Info(ctx, "board categories seeded", "count", len(defaultCategories))

	if !cfg.IsDevelopment() || !local {
		logger.Info(ctx, "skipping dev admin", "env", cfg.Env, "backend", cfg.CredentialBackend)
		return
	}

	created, err := seedDevAdmin(ctx, cfg,
		repository.NewCredentialRepository(gormDB),
		repository.NewUserRepository(gormDB),
	)
	if err != nil {
		logger.Error(ctx, "failed to seed dev admin", "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "dev admin ready", "email", cfg.DevAdminEmail, "created", created,
		"plaintext", cfg.PlaintextLoginAllowed())
}

// seedDevAdmin creates or refreshes the development admin: a confirmed
// credential plus an approved admin user sharing its ID. The password is
// stored verbatim only when the plaintext bypass is enabled.
func seedDevAdmin(ctx context.Context, cfg *config.Config, creds repository.CredentialRepository, users repository.UserRepository) (bool, error) {
	email := service.NormalizeEmail(cfg.DevAdminEmail)

	secret := cfg.DevAdminPassword
	if !cfg.PlaintextLoginAllowed() {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), cfg.BcryptCost)
		if err != nil {
			return false, fmt.Errorf("hash password: %w", err)
		}
		secret = string(hash)
	}
	now := time.Now()

	cred, err := creds.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		cred = &model.Credential{Email: email, PasswordHash: secret, EmailConfirmedAt: &now}
		if err := creds.Create(ctx, cred); err != nil {
			return false, fmt.Errorf("create credential: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("find credential: %w", err)
	default:
		cred.PasswordHash = secret
		cred.EmailConfirmedAt = &now
		cred.ConfirmationJTI = ""
		if err := creds.Update(ctx, cred); err != nil {
			return false, fmt.Errorf("update credential: %w", err)
		}
	}

	user, err := users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		user = &model.User{
			ID:         cred.ID,
			Email:      email,
			Name:       "관리자",
			Role:       model.RoleAdmin,
			IsApproved: true,
		}
		if err := users.Create(ctx, user); err != nil {
			return false, fmt.Errorf("create user: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("find user: %w", err)
	}

	if user.ID != cred.ID {
		return false, fmt.Errorf("user %s does not match credential %s", user.ID, cred.ID)
	}
	if _, err := users.UpdateRoleApproval(ctx, user.ID, model.RoleAdmin, true); err != nil {
		return false, fmt.Errorf("promote user: %w", err)
	}
	return false, nil
}
