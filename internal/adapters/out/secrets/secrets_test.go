package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/boundaries/out/mocks"
	"github.com/bnema/envrefresh/internal/domain"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "simple path", path: "envrefresh/grant-token"},
		{name: "dots in name", path: "my.secret.key"},
		{name: "nested path", path: "org/team/app/secret"},
		{name: "traversal", path: "../../../etc/passwd", wantErr: ErrPathTraversal},
		{name: "traversal in middle", path: "foo/../../etc/passwd", wantErr: ErrPathTraversal},
		{name: "absolute", path: "/etc/passwd", wantErr: domain.ErrInvalidConfig},
		{name: "shell characters", path: "foo;rm -rf", wantErr: domain.ErrInvalidConfig},
		{name: "empty", path: "", wantErr: domain.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConvertToSopsExtractPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "", expected: ""},
		{input: "password", expected: `["password"]`},
		{input: "grant.token", expected: `["grant"]["token"]`},
		{input: "app.api-key", expected: `["app"]["api-key"]`},
		{input: "[0]", expected: `[0]`},
		{input: "items[0].name", expected: `["items"][0]["name"]`},
		{input: "matrix[0][1]", expected: `["matrix"][0][1]`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, convertToSopsExtractPath(tt.input))
		})
	}
}

func TestPassProvider_GetSecret(t *testing.T) {
	var gotArgs []string
	p := NewPassProvider()
	p.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("s3cret\nuser: ops\n"), nil
	}

	secret, err := p.GetSecret(context.Background(), "envrefresh/grant")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)
	assert.Equal(t, []string{"pass", "show", "envrefresh/grant"}, gotArgs)
}

func TestPassProvider_EmptySecret(t *testing.T) {
	p := NewPassProvider()
	p.run = func(context.Context, string, ...string) ([]byte, error) { return []byte("  \n"), nil }

	_, err := p.GetSecret(context.Background(), "envrefresh/grant")
	assert.Error(t, err)
}

func TestSopsProvider_GetSecret(t *testing.T) {
	var gotArgs []string
	s := NewSopsProvider()
	s.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("token-value\n"), nil
	}

	secret, err := s.GetSecret(context.Background(), "secrets.yaml:grant.token")
	require.NoError(t, err)
	assert.Equal(t, "token-value", secret)
	assert.Equal(t, []string{"sops", "-d", "--extract", `["grant"]["token"]`, "secrets.yaml"}, gotArgs)
}

func TestSopsProvider_Rejects(t *testing.T) {
	s := NewSopsProvider()
	s.run = func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("sops must not run")
		return nil, nil
	}

	_, err := s.GetSecret(context.Background(), "no-key-separator")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = s.GetSecret(context.Background(), "../secrets.yaml:token")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = s.GetSecret(context.Background(), "secrets.yaml:$(id)")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestResolver(t *testing.T) {
	pass := new(mocks.MockSecretProvider)
	pass.On("Name").Return("pass")
	pass.On("IsAvailable").Return(true)
	pass.On("GetSecret", mock.Anything, "envrefresh/grant").Return("s3cret", nil)

	r := NewResolver(pass)

	got, err := r.Resolve(context.Background(), "pass:envrefresh/grant")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	got, err = r.Resolve(context.Background(), "plain-token")
	require.NoError(t, err)
	assert.Equal(t, "plain-token", got)

	got, err = r.Resolve(context.Background(), "vault:kv/grant")
	require.NoError(t, err)
	assert.Equal(t, "vault:kv/grant", got, "unknown schemes pass through")

	pass.AssertExpectations(t)
}

func TestResolver_ProviderErrors(t *testing.T) {
	missing := new(mocks.MockSecretProvider)
	missing.On("Name").Return("sops")
	missing.On("IsAvailable").Return(false)

	_, err := NewResolver(missing).Resolve(context.Background(), "sops:secrets.yaml:token")
	assert.Equal(t, domain.CategoryPrerequisite, domain.CategoryOf(err))

	failing := new(mocks.MockSecretProvider)
	failing.On("Name").Return("pass")
	failing.On("IsAvailable").Return(true)
	failing.On("GetSecret", mock.Anything, "x").Return("", errors.New("gpg: decryption failed"))

	_, err = NewResolver(failing).Resolve(context.Background(), "pass:x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
	assert.Equal(t, domain.ExitPrerequisite, domain.ExitCodeFor(err))
}
