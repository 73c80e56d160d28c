package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/hermes/pkg/tokens"
	"github.com/vignesh-goutham/hermes/pkg/types"
)

func TestTokensExist(t *testing.T) {
	ctx := context.Background()
	store := tokens.NewFileStore(filepath.Join(t.TempDir(), "cs_tokens.json"))
	a := &App{Store: store}

	assert.False(t, a.TokensExist(ctx))

	require.NoError(t, store.Save(ctx, &types.Tokens{AccessToken: "a", RefreshToken: "r", ExpiresAt: "2026-03-02T15:00:00Z"}))
	assert.True(t, a.TokensExist(ctx))
}
