package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docscopilot/user-service/internal/repository"
	"github.com/docscopilot/user-service/shared/cqrs"
	"github.com/docscopilot/user-service/shared/events"
	"github.com/docscopilot/user-service/shared/models"
	"github.com/docscopilot/user-service/shared/utils"
)

// AdminUsername is the username of the account created by BootstrapAdmin.
const AdminUsername = "docs-copilot-root"

type PasswordHasher interface {
	Hash(password string) (string, error)
}

// CodeConsumer atomically checks and removes a pending verification code.
type CodeConsumer interface {
	Consume(ctx context.Context, email, code string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountCommandService owns every account write. Persistence goes through
// the registry; events are published after the write commits and a publish
// failure never fails the command.
type AccountCommandService struct {
	registry  repository.AccountRegistry
	hasher    PasswordHasher
	codes     CodeConsumer
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewAccountCommandService(
	registry repository.AccountRegistry,
	hasher PasswordHasher,
	codes CodeConsumer,
	publisher EventPublisher,
	logger *slog.Logger,
) *AccountCommandService {
	return &AccountCommandService{
		registry:  registry,
		hasher:    hasher,
		codes:     codes,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account and its profile. Username must be free, and
// so must Email when given. The stored gender is always "other".
func (s *AccountCommandService) Register(ctx context.Context, cmd cqrs.RegisterAccountCommand) (*models.Account, error) {
	if cmd.Username == "" {
		return nil, fmt.Errorf("username is required: %w", models.ErrInvalidInput)
	}

	if err := s.ensureFree(ctx, "username", cmd.Username, s.registry.FindByUsername); err != nil {
		return nil, err
	}
	if cmd.Email != "" {
		if err := s.ensureFree(ctx, "email", cmd.Email, s.registry.FindByEmail); err != nil {
			return nil, err
		}
	}

	var passwordHash string
	if cmd.Password != "" {
		hash, err := s.hasher.Hash(cmd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = hash
	}

	profile := cmd.Profile
	profile.Gender = models.GenderOther

	roleIDs := cmd.RoleIDs
	if roleIDs == nil {
		roleIDs = []int{}
	}

	now := s.now()
	account := &models.Account{
		ID:         utils.GenerateID(),
		Username:   cmd.Username,
		Email:      cmd.Email,
		Password:   passwordHash,
		ExternalID: cmd.ExternalID,
		RoleIDs:    roleIDs,
		Profile:    &profile,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.registry.CreateWithProfile(ctx, account); err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserCreated, events.UserCreatedEvent{
		UserID:   account.ID,
		Username: account.Username,
		Email:    account.Email,
		RoleIDs:  account.RoleIDs,
	})
	return account, nil
}

// UpdateProfile merges the non-empty fields of cmd into the account and its
// profile and returns the account with its profile.
func (s *AccountCommandService) UpdateProfile(ctx context.Context, cmd cqrs.UpdateProfileCommand) (*models.Account, error) {
	if _, err := s.registry.FindByID(ctx, cmd.UserID); err != nil {
		return nil, err
	}

	patch := models.AccountPatch{
		Username: utils.StringPtr(cmd.Username),
		Email:    utils.StringPtr(cmd.Email),
		Profile: models.ProfilePatch{
			Address:     utils.StringPtr(cmd.Address),
			Description: utils.StringPtr(cmd.Description),
			Avatar:      utils.StringPtr(cmd.Avatar),
			Photo:       utils.StringPtr(cmd.Photo),
		},
	}
	if cmd.Gender != "" {
		if !cmd.Gender.Valid() {
			return nil, fmt.Errorf("gender %q: %w", cmd.Gender, models.ErrInvalidInput)
		}
		gender := cmd.Gender
		patch.Profile.Gender = &gender
	}

	account, err := s.registry.UpdatePartial(ctx, cmd.UserID, patch)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserUpdated, events.UserUpdatedEvent{
		UserID:   account.ID,
		Username: account.Username,
		Email:    account.Email,
	})
	return account, nil
}

// ResetPassword consumes the pending verification code for cmd.Email and,
// only if it matched, stores a new hash for cmd.Password.
func (s *AccountCommandService) ResetPassword(ctx context.Context, cmd cqrs.ResetPasswordCommand) (*models.Account, error) {
	if cmd.Email == "" || cmd.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", models.ErrInvalidInput)
	}

	ok, err := s.codes.Consume(ctx, cmd.Email, cmd.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to verify code: %w", err)
	}
	if !ok {
		return nil, models.ErrInvalidReset
	}

	passwordHash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.registry.UpdatePassword(ctx, cmd.Email, passwordHash)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserPasswordReset, events.UserPasswordResetEvent{
		UserID: account.ID,
		Email:  account.Email,
	})
	return account, nil
}

func (s *AccountCommandService) Remove(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	if err := s.registry.Delete(ctx, cmd.UserID); err != nil {
		return err
	}
	s.publish(ctx, events.UserDeleted, events.UserDeletedEvent{UserID: cmd.UserID})
	return nil
}

// BootstrapAdmin makes sure the super administrator exists. It runs once at
// startup and never fails the process: every error is logged and dropped.
func (s *AccountCommandService) BootstrapAdmin(ctx context.Context, cfg cqrs.BootstrapConfig) {
	if cfg.AdminEmail == "" {
		s.logger.Warn("admin email not configured, skipping admin bootstrap")
		return
	}

	existing, err := s.registry.FindByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		s.logger.Info("admin account already exists", "user_id", existing.ID)
		return
	case !errors.Is(err, models.ErrNotFound):
		s.logger.Error("failed to look up admin account", "error", err)
		return
	}

	account, err := s.Register(ctx, cqrs.RegisterAccountCommand{
		Username: AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.DBPassword,
		RoleIDs:  []int{models.RoleSuper},
	})
	if err != nil {
		s.logger.Error("failed to create admin account", "error", err)
		return
	}
	s.logger.Info("admin account created", "user_id", account.ID, "username", account.Username)
}

func (s *AccountCommandService) ensureFree(
	ctx context.Context,
	field, value string,
	find func(context.Context, string) (*models.Account, error),
) error {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return fmt.Errorf("%s %w", field, models.ErrConflict)
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check %s: %w", field, err)
	}
}

func (s *AccountCommandService) publish(ctx context.Context, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.UserEventsStream, eventType, data); err != nil {
		s.logger.Warn("failed to publish event", "type", eventType, "error", err)
	}
}
