// Package service assembles the account command and query sides into the
// single application service the HTTP layer talks to.
package service

import (
	"log/slog"

	"github.com/docscopilot/user-service/internal/command"
	"github.com/docscopilot/user-service/internal/query"
	"github.com/docscopilot/user-service/internal/repository"
)

type AccountService struct {
	*command.AccountCommandService
	*query.AccountQueryService
}

func NewAccountService(
	registry repository.AccountRegistry,
	hasher command.PasswordHasher,
	codes command.CodeConsumer,
	publisher command.EventPublisher,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		AccountCommandService: command.NewAccountCommandService(registry, hasher, codes, publisher, logger),
		AccountQueryService:   query.NewAccountQueryService(registry),
	}
}
