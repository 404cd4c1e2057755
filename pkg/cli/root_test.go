package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/critique/pkg/auth"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "createsuperuser"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestCreateSuperuserCommand_RequiresFlags(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"createsuperuser", "--username", "root"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestCommands_InvalidConfig(t *testing.T) {
	t.Setenv("CRITIQUE_DATABASE_URL", "postgres://localhost/critique")
	t.Setenv("CRITIQUE_JWT_SECRET", "short")

	for _, args := range [][]string{
		{"migrate"},
		{"serve"},
		{"createsuperuser", "--username", "root", "--email", "root@example.com"},
	} {
		t.Run(args[0], func(t *testing.T) {
			root := NewRootCommand()
			root.SetArgs(args)

			err := root.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "JWT secret")
		})
	}
}

func TestCommands_MissingConfigFile(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml")})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestCommands_ConfigFileValidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "critique.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  url: \"\"\n"), 0o600))
	t.Setenv("CRITIQUE_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	root := NewRootCommand()
	root.SetArgs([]string{"migrate", "--config", path})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

type fakeSuperuserCreator struct {
	created bool
	err     error
}

func (f *fakeSuperuserCreator) EnsureSuperuser(ctx context.Context, username, email string) (*auth.User, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	return &auth.User{ID: 1, Username: username, Email: email, Role: auth.RoleAdmin}, f.created, nil
}

func TestCreateSuperuser(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		var out bytes.Buffer
		err := createSuperuser(context.Background(), &fakeSuperuserCreator{created: true}, &out, "root", "root@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Superuser root created\n", out.String())
	})

	t.Run("promoted", func(t *testing.T) {
		var out bytes.Buffer
		err := createSuperuser(context.Background(), &fakeSuperuserCreator{}, &out, "root", "root@example.com")
		require.NoError(t, err)
		assert.Equal(t, "User root promoted to superuser\n", out.String())
	})

	t.Run("error", func(t *testing.T) {
		cause := errors.New("username taken")
		var out bytes.Buffer
		err := createSuperuser(context.Background(), &fakeSuperuserCreator{err: cause}, &out, "root", "root@example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "failed to create superuser")
		assert.Empty(t, out.String())
	})
}
