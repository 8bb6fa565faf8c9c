package service

import (
	"context"
	"log/slog"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/repository"
	"github.com/unipost/unipost-api/pkg/errs"
	"github.com/unipost/unipost-api/pkg/utils"
)

// CredentialResolver loads a user's linked account for a network and
// decrypts its token material. Adapters only ever see plaintext Credentials.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID int64, network string) (Credentials, error)
}

type AccountsService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewAccountsService(cfg config.Config, sa repository.SocialAccountRepository) *AccountsService {
	return &AccountsService{cfg: cfg, sa: sa}
}

func (s *AccountsService) Resolve(ctx context.Context, userID int64, network string) (Credentials, error) {
	account, err := s.sa.GetByUserAndNetwork(ctx, userID, network)
	if err != nil {
		return Credentials{}, err
	}
	if account == nil {
		return Credentials{}, errs.Newf(errs.CodeAuthInvalid, "no %s account linked for this user", network)
	}

	creds := Credentials{AccountID: account.AccountID}

	if account.AccessToken != "" {
		token, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
		if err != nil {
			slog.Info("could not decrypt access token", "network", network, "user_id", userID)
			return Credentials{}, errs.Wrap(err, errs.CodeAuthInvalid, "stored access token is unreadable")
		}
		creds.AccessToken = token
	}

	if account.AccessSecret != "" {
		secret, err := utils.Decrypt(account.AccessSecret, []byte(s.cfg.SecretKey))
		if err != nil {
			slog.Info("could not decrypt access secret", "network", network, "user_id", userID)
			return Credentials{}, errs.Wrap(err, errs.CodeAuthInvalid, "stored access secret is unreadable")
		}
		creds.AccessSecret = secret
	}

	return creds, nil
}

// ListLinkedNetworks returns the networks the user has accounts for.
func (s *AccountsService) ListLinkedNetworks(ctx context.Context, userID int64) ([]string, error) {
	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	networks := make([]string, 0, len(accounts))
	for _, a := range accounts {
		networks = append(networks, a.Network)
	}
	return networks, nil
}
