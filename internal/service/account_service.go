package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage"
)

// KeySealer seals venue API keys before they are stored. Satisfied by *vault.Vault.
type KeySealer interface {
	Seal(plaintext string) (string, error)
}

// NewAccount is the operator input for a trading account.
type NewAccount struct {
	ID        string `json:"id,omitempty"`
	Label     string `json:"label"`
	PublicKey string `json:"public_key"`
	APIKey    string `json:"api_key"`
}

// AccountService registers trading accounts.
type AccountService struct {
	accounts storage.AccountStore
	sealer   KeySealer
	now      func() time.Time
}

// NewAccountService creates an AccountService. sealer may be nil when keys
// are never added through this service, e.g. read-only commands.
func NewAccountService(accounts storage.AccountStore, sealer KeySealer) *AccountService {
	return &AccountService{accounts: accounts, sealer: sealer, now: time.Now}
}

// Add validates the wallet, seals the API key and stores an active account.
func (s *AccountService) Add(ctx context.Context, in NewAccount) (*domain.Account, error) {
	pub := strings.TrimSpace(in.PublicKey)
	if err := solana.ValidateWallet(pub); err != nil {
		return nil, fmt.Errorf("%w: public key: %v", domain.ErrInvalidAccount, err)
	}
	if strings.TrimSpace(in.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key is required", domain.ErrInvalidAccount)
	}
	if s.sealer == nil {
		return nil, fmt.Errorf("add account: no key sealer configured")
	}

	sealed, err := s.sealer.Seal(strings.TrimSpace(in.APIKey))
	if err != nil {
		return nil, fmt.Errorf("seal api key: %w", err)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := s.now().UnixMilli()
	acc := &domain.Account{
		ID:           id,
		Label:        strings.TrimSpace(in.Label),
		PublicKey:    pub,
		SealedAPIKey: sealed,
		Active:       true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account %s: %w", id, err)
	}
	return acc, nil
}

// List returns all accounts, oldest first.
func (s *AccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.accounts.List(ctx)
}

// SetActive toggles an account.
func (s *AccountService) SetActive(ctx context.Context, id string, active bool) error {
	return s.accounts.SetActive(ctx, id, active, s.now().UnixMilli())
}
