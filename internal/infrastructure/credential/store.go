package credential

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

// Key is the storage key of the persisted bearer credential.
const Key = "openrouter_api_key"

const maxCredentialBytes = 4096

type Store struct {
	storage ports.ObjectStorage
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(storage ports.ObjectStorage) *Store {
	return &Store{storage: storage}
}

func (s *Store) Load(ctx context.Context) (string, error) {
	reader, err := s.storage.Open(ctx, Key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrCredentialMissing
		}
		return "", fmt.Errorf("open credential: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, maxCredentialBytes))
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	credential := strings.TrimSpace(string(raw))
	if credential == "" {
		return "", domain.ErrCredentialMissing
	}
	return credential, nil
}

func (s *Store) Save(ctx context.Context, credential string) error {
	if err := s.storage.Save(ctx, Key, strings.NewReader(credential)); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context) error {
	if err := s.storage.Delete(ctx, Key); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
