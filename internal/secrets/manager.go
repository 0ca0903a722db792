// Package secrets resolves the admin master key at startup. In development
// the key comes straight from the environment; in production it is stored as
// a KMS-sealed blob and decrypted once, so the plaintext never appears in
// configuration files.
package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"admin-auth-service/internal/config"
	"admin-auth-service/internal/util"
)

var (
	ErrNoMasterKey  = errors.New("no master key configured")
	ErrUnsealFailed = errors.New("failed to unseal master key")
)

type Manager struct {
	cfg       *config.Config
	kmsClient *kms.Client
	masterKey string
}

func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	m := &Manager{cfg: cfg}

	if cfg.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.KMS.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		m.kmsClient = kms.NewFromConfig(awsCfg)
	}

	if err := m.resolveMasterKey(ctx); err != nil {
		return nil, err
	}

	util.Info("Master key resolved",
		util.Bool("kms_sealed", cfg.KMS.Enabled),
	)
	return m, nil
}

// MasterKey returns the resolved plaintext master key.
func (m *Manager) MasterKey() string {
	return m.masterKey
}

func (m *Manager) resolveMasterKey(ctx context.Context) error {
	if m.cfg.KMS.Enabled {
		key, err := m.unseal(ctx, m.cfg.KMS.SealedMasterKey)
		if err != nil {
			return err
		}
		m.masterKey = key
		return nil
	}

	if m.cfg.Auth.MasterKey == "" {
		return ErrNoMasterKey
	}
	m.masterKey = m.cfg.Auth.MasterKey
	return nil
}

func (m *Manager) unseal(ctx context.Context, sealed string) (string, error) {
	if sealed == "" {
		return "", ErrNoMasterKey
	}

	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: invalid sealed key encoding", ErrUnsealFailed)
	}

	result, err := m.kmsClient.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: blob,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}

	return string(result.Plaintext), nil
}
