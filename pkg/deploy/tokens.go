package deploy

import (
	"context"
	"fmt"

	"github.com/vignesh-goutham/hermes/pkg/tokens"
	"go.uber.org/zap"
)

// PushTokens copies tokens from one store to another, typically from a local
// token file into Secrets Manager ahead of a redeployment
func PushTokens(ctx context.Context, from, to tokens.Store) error {
	t, err := from.Load(ctx)
	if err != nil {
		return fmt.Errorf("error loading tokens: %w", err)
	}
	if _, err := tokens.ExpiresAt(t); err != nil {
		return fmt.Errorf("refusing to push tokens: %w", err)
	}
	if err := to.Save(ctx, t); err != nil {
		return fmt.Errorf("error saving tokens: %w", err)
	}
	zap.S().Info("Tokens pushed")
	return nil
}
