package google

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-push-scheduler/internal/config"
	"github.com/go-push-scheduler/internal/domain"
	"github.com/go-push-scheduler/internal/pkg/validate"
)

// LoadServiceAccount reads the push project's service account, preferring the
// JSON key file over the inline FCM_* variables.
func LoadServiceAccount(cfg *config.Config) (domain.ServiceAccountKey, error) {
	var key domain.ServiceAccountKey
	if cfg.ServiceAccountFile != "" {
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return key, fmt.Errorf("read service account file: %w", err)
		}
		if err := json.Unmarshal(b, &key); err != nil {
			return key, fmt.Errorf("decode service account file: %w", err)
		}
	} else {
		key = domain.ServiceAccountKey{
			ClientEmail:   cfg.FCMClientEmail,
			PrivateKeyPEM: cfg.FCMPrivateKey,
			ProjectID:     cfg.FCMProjectID,
		}
	}
	if cfg.FCMProjectID != "" {
		key.ProjectID = cfg.FCMProjectID
	}
	if err := validate.Struct(key); err != nil {
		return key, fmt.Errorf("invalid service account: %w", err)
	}
	return key, nil
}
