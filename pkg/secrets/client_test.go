package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory Secrets Manager
type fakeAPI struct {
	values  map[string]string
	created []string
	err     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{values: map[string]string{}}
}

func (f *fakeAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func (f *fakeAPI) UpdateSecret(_ context.Context, in *secretsmanager.UpdateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	id := aws.ToString(in.SecretId)
	if _, ok := f.values[id]; !ok {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("not found")}
	}
	f.values[id] = aws.ToString(in.SecretString)
	return &secretsmanager.UpdateSecretOutput{}, nil
}

func (f *fakeAPI) CreateSecret(_ context.Context, in *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	name := aws.ToString(in.Name)
	f.values[name] = aws.ToString(in.SecretString)
	f.created = append(f.created, name)
	return &secretsmanager.CreateSecretOutput{}, nil
}

func TestGetJSON_NotFound(t *testing.T) {
	c := NewWithAPI(newFakeAPI())
	var v map[string]string
	err := c.GetJSON(context.Background(), "production/schwab-api/tokens", &v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetJSON_OtherError(t *testing.T) {
	api := newFakeAPI()
	api.err = errors.New("access denied")
	c := NewWithAPI(api)
	var v map[string]string
	err := c.GetJSON(context.Background(), "x", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPutJSON_CreatesThenUpdates(t *testing.T) {
	api := newFakeAPI()
	c := NewWithAPI(api)
	ctx := context.Background()

	require.NoError(t, c.PutJSON(ctx, "dev/schwab-api/tokens", map[string]string{"a": "1"}, "Charles Schwab API tokens"))
	assert.Equal(t, []string{"dev/schwab-api/tokens"}, api.created)

	require.NoError(t, c.PutJSON(ctx, "dev/schwab-api/tokens", map[string]string{"a": "2"}, "Charles Schwab API tokens"))
	assert.Len(t, api.created, 1)
	assert.JSONEq(t, `{"a":"2"}`, api.values["dev/schwab-api/tokens"])
}

func TestLoadCredentials(t *testing.T) {
	api := newFakeAPI()
	api.values["production/schwab-api/credentials"] = `{"client_id":"key","client_secret":"secret"}`
	api.values["staging/schwab-api/credentials"] = `{"SCHWAB_APP_KEY":"k2","SCHWAB_APP_SECRET":"s2","SCHWAB_REDIRECT_URI":"https://10.0.0.1/callback"}`
	api.values["broken/schwab-api/credentials"] = `{"client_id":"key"}`
	c := NewWithAPI(api)
	ctx := context.Background()

	creds, err := c.LoadCredentials(ctx, "production")
	require.NoError(t, err)
	assert.Equal(t, "key", creds.AppKey)
	assert.Equal(t, "secret", creds.AppSecret)
	assert.Equal(t, "https://127.0.0.1", creds.RedirectURI)

	creds, err = c.LoadCredentials(ctx, "staging")
	require.NoError(t, err)
	assert.Equal(t, "k2", creds.AppKey)
	assert.Equal(t, "https://10.0.0.1/callback", creds.RedirectURI)

	_, err = c.LoadCredentials(ctx, "broken")
	assert.Error(t, err)

	_, err = c.LoadCredentials(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
