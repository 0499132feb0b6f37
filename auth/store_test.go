package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/BaSui01/dbflow/types"
)

func TestResolver_CredentialStore_RoundTrip(t *testing.T) {
	keyring.MockInit()
	r := NewResolver()

	require.NoError(t, r.Store("dbflow-test", "svc", "hunter2"))

	params, err := r.Resolve(context.Background(),
		types.NewCredentialStoreAuth("dbflow-test", "svc"))
	require.NoError(t, err)
	assert.Equal(t, "svc", params.Username)
	assert.Equal(t, "hunter2", params.Password)

	require.NoError(t, r.Delete("dbflow-test", "svc"))

	_, err = r.Resolve(context.Background(),
		types.NewCredentialStoreAuth("dbflow-test", "svc"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeCredentialsNotFound))
	// 报错必须指名查询的 service 与 username
	assert.Contains(t, err.Error(), "dbflow-test")
	assert.Contains(t, err.Error(), "svc")
}

func TestResolver_CredentialStore_MissingEntry(t *testing.T) {
	keyring.MockInit()
	r := NewResolver()

	_, err := r.Resolve(context.Background(),
		types.NewCredentialStoreAuth("dbflow-test", "nobody"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeCredentialsNotFound))
}

func TestResolver_CredentialStore_RequiresServiceAndUsername(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve(context.Background(), types.AuthDescriptor{
		Type:            types.AuthCredentialStore,
		CredentialStore: &types.CredentialStoreAuth{Service: "only-service"},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeConfiguration))
}

func TestResolver_Store_Validates(t *testing.T) {
	keyring.MockInit()
	r := NewResolver()

	err := r.Store("", "svc", "secret")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeConfiguration))

	err = r.Store("dbflow-test", "", "secret")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeConfiguration))
}

func TestResolver_Delete_Missing(t *testing.T) {
	keyring.MockInit()
	r := NewResolver()

	err := r.Delete("dbflow-test", "ghost")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeCredentialsNotFound))
}
