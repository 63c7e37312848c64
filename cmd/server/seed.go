package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"campusvote/internal/platform/config"
	"campusvote/internal/platform/postgres"
	userModels "campusvote/internal/user/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/secrets"
)

const minAdminPasswordLength = 12

type adminSeedStore interface {
	FindByEmail(ctx context.Context, email string) (*userModels.User, error)
	Create(ctx context.Context, user *userModels.User) error
	Update(ctx context.Context, user *userModels.User) error
}

func seedAdminCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or reset the administrator account named by ADMIN_EMAIL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			log, err := commonRun(cfg)
			if err != nil {
				return err
			}
			if len(password) < minAdminPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minAdminPasswordLength)
			}
			st, err := openStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()
			if st.db != nil {
				if err := postgres.Migrate(cmd.Context(), st.db, log); err != nil {
					return err
				}
			} else {
				log.Warn("seeding the in-memory store, the account is lost on exit")
			}
			return seedAdmin(cmd.Context(), st.users, cfg.AdminEmail, password, time.Now(), log)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "administrator password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// seedAdmin is idempotent: an existing account keeps its ID and is promoted,
// reactivated and given the new password.
func seedAdmin(ctx context.Context, users adminSeedStore, address, password string, now time.Time, log *slog.Logger) error {
	hash, err := secrets.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	existing, err := users.FindByEmail(ctx, address)
	switch {
	case err == nil:
		existing.Role = id.RoleAdmin
		existing.Active = true
		existing.SetPasswordHash(hash, now)
		existing.UpdatedAt = now
		if err := users.Update(ctx, existing); err != nil {
			return fmt.Errorf("update admin: %w", err)
		}
		log.InfoContext(ctx, "admin account reset", "user_id", existing.ID)
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return fmt.Errorf("find admin: %w", err)
	}

	admin, err := userModels.NewUser(id.UserID(uuid.New()), "Administrator", address, id.RoleAdmin, now)
	if err != nil {
		return err
	}
	admin.SetPasswordHash(hash, now)
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.InfoContext(ctx, "admin account created", "user_id", admin.ID)
	return nil
}
