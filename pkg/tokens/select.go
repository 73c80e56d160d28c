package tokens

import (
	"github.com/vignesh-goutham/hermes/pkg/secrets"
	"go.uber.org/zap"
)

// NewStore picks Secrets Manager on EC2 and the local file everywhere else
func NewStore(onEC2 bool, client *secrets.Client, environment, tokenFile string) Store {
	if onEC2 && client != nil {
		zap.S().Infof("Running on EC2, tokens stored in %s", secrets.TokensName(environment))
		return NewSecretStore(client, environment)
	}
	zap.S().Infof("Tokens stored in local file %s", tokenFile)
	return NewFileStore(tokenFile)
}
