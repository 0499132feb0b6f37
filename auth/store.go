package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"github.com/BaSui01/dbflow/types"
)

// resolveCredentialStore 按 service+username 查询操作系统凭据库。
// 缺失时指名查询对，便于排障。
func (r *Resolver) resolveCredentialStore(store *types.CredentialStoreAuth) (types.DriverParams, error) {
	if store.Service == "" || store.Username == "" {
		return types.DriverParams{}, types.NewConfigurationError(
			"credential store auth requires both service and username")
	}

	secret, err := keyring.Get(store.Service, store.Username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return types.DriverParams{}, types.NewCredentialsNotFoundError(
				fmt.Sprintf("no credential stored for service %q user %q", store.Service, store.Username))
		}
		return types.DriverParams{}, types.NewCredentialsNotFoundError(
			fmt.Sprintf("credential store lookup failed for service %q user %q", store.Service, store.Username)).
			WithCause(err)
	}
	return types.DriverParams{Username: store.Username, Password: secret}, nil
}

// Store 将凭据写入操作系统凭据库。这是本层唯一的凭据写路径。
func (r *Resolver) Store(service, username, secret string) error {
	if service == "" || username == "" {
		return types.NewConfigurationError("store requires both service and username")
	}
	if err := keyring.Set(service, username, secret); err != nil {
		return types.NewConfigurationError(
			fmt.Sprintf("failed to store credential for service %q user %q", service, username)).
			WithCause(err)
	}
	r.logger.Info("credential stored",
		zap.String("service", service),
		zap.String("username", username))
	return nil
}

// Delete 从操作系统凭据库移除凭据
func (r *Resolver) Delete(service, username string) error {
	if err := keyring.Delete(service, username); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return types.NewCredentialsNotFoundError(
				fmt.Sprintf("no credential stored for service %q user %q", service, username))
		}
		return types.NewConfigurationError(
			fmt.Sprintf("failed to delete credential for service %q user %q", service, username)).
			WithCause(err)
	}
	r.logger.Info("credential deleted",
		zap.String("service", service),
		zap.String("username", username))
	return nil
}
