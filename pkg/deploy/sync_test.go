package deploy

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/hermes/pkg/envfile"
	"github.com/vignesh-goutham/hermes/pkg/tokens"
	"github.com/vignesh-goutham/hermes/pkg/types"
)

type fakeSecrets struct {
	creds types.Credentials
	err   error
}

func (f *fakeSecrets) LoadCredentials(context.Context, string) (types.Credentials, error) {
	return f.creds, f.err
}

type fakeInstance struct {
	onEC2 bool
	ip    string
	err   error
}

func (f *fakeInstance) IsRunningOnEC2(context.Context) bool { return f.onEC2 }

func (f *fakeInstance) PublicIPv4(context.Context) (string, error) { return f.ip, f.err }

type fakeRestarter struct {
	units []string
	err   error
}

func (f *fakeRestarter) Restart(_ context.Context, unit string) error {
	f.units = append(f.units, unit)
	return f.err
}

func newSyncer(t *testing.T) (*Syncer, *fakeInstance, *fakeRestarter) {
	inst := &fakeInstance{onEC2: true, ip: "3.91.12.7"}
	rs := &fakeRestarter{}
	return &Syncer{
		Secrets:     &fakeSecrets{creds: types.Credentials{AppKey: "key-1", AppSecret: "secret-1", RedirectURI: "https://127.0.0.1"}},
		Instance:    inst,
		Restarter:   rs,
		Environment: "production",
		Region:      "us-east-1",
		EnvFile:     filepath.Join(t.TempDir(), ".env"),
		ServiceName: "schwab-api.service",
		Port:        8080,
	}, inst, rs
}

func TestSync_WritesAndRestarts(t *testing.T) {
	s, _, rs := newSyncer(t)
	require.NoError(t, envfile.Write(s.EnvFile, map[string]string{"SECRET_KEY": "keep", "SCHWAB_APP_KEY": "stale"}))

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.True(t, res.Restarted)
	assert.Equal(t, "3.91.12.7", res.PublicIP)
	assert.Contains(t, res.Changed, "SCHWAB_APP_KEY")
	assert.Equal(t, []string{"schwab-api.service"}, rs.units)

	values, err := envfile.Read(s.EnvFile)
	require.NoError(t, err)
	assert.Equal(t, "key-1", values["SCHWAB_APP_KEY"])
	assert.Equal(t, "secret-1", values["SCHWAB_APP_SECRET"])
	assert.Equal(t, "keep", values["SECRET_KEY"])
	assert.Equal(t, "http://3.91.12.7:8080", values["APP_BASE_URL"])
}

func TestSync_NoChangeNoRestart(t *testing.T) {
	s, _, rs := newSyncer(t)
	_, err := s.Sync(context.Background())
	require.NoError(t, err)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Changed)
	assert.False(t, res.Written)
	assert.False(t, res.Restarted)
	assert.Len(t, rs.units, 1)
}

func TestSync_RotatedIP(t *testing.T) {
	s, inst, rs := newSyncer(t)
	_, err := s.Sync(context.Background())
	require.NoError(t, err)

	inst.ip = "54.12.3.4"
	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"APP_BASE_URL", "PUBLIC_IP"}, res.Changed)
	assert.Len(t, rs.units, 2)
}

func TestSync_SecretFailureLeavesFile(t *testing.T) {
	s, _, rs := newSyncer(t)
	require.NoError(t, envfile.Write(s.EnvFile, map[string]string{"SCHWAB_APP_KEY": "stale"}))
	s.Secrets = &fakeSecrets{err: errors.New("access denied")}

	_, err := s.Sync(context.Background())
	require.Error(t, err)

	values, err := envfile.Read(s.EnvFile)
	require.NoError(t, err)
	assert.Equal(t, "stale", values["SCHWAB_APP_KEY"])
	assert.Empty(t, rs.units)
}

func TestSync_OffEC2AndDryRun(t *testing.T) {
	s, inst, rs := newSyncer(t)
	inst.onEC2 = false
	s.DryRun = true

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, res.Changed, "PUBLIC_IP")
	assert.False(t, res.Written)
	assert.Empty(t, rs.units)

	values, err := envfile.Read(s.EnvFile)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestSync_RestartFailure(t *testing.T) {
	s, _, rs := newSyncer(t)
	rs.err = errors.New("unit not loaded")

	res, err := s.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, res.Written)
	assert.False(t, res.Restarted)
}

func TestPushTokens(t *testing.T) {
	dir := t.TempDir()
	from := tokens.NewFileStore(filepath.Join(dir, "from.json"))
	to := tokens.NewFileStore(filepath.Join(dir, "to.json"))
	ctx := context.Background()

	assert.Error(t, PushTokens(ctx, from, to))

	require.NoError(t, from.Save(ctx, &types.Tokens{AccessToken: "a", RefreshToken: "r"}))
	assert.Error(t, PushTokens(ctx, from, to))

	require.NoError(t, from.Save(ctx, &types.Tokens{AccessToken: "a", RefreshToken: "r", ExpiresAt: "2026-03-02T14:30:00Z"}))
	require.NoError(t, PushTokens(ctx, from, to))
	got, err := to.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
}
