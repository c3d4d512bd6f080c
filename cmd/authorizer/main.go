package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/viper"

	"github.com/stefando/multipartUploadAWS/internal/auth"
	"github.com/stefando/multipartUploadAWS/internal/logging"
)

func main() {
	v := viper.New()
	v.SetDefault("log_level", "info")
	for _, key := range []string{"oidc_issuer", "oidc_client_id", "log_level"} {
		_ = v.BindEnv(key)
	}

	logger := logging.New("upload-authorizer", v.GetString("log_level"))

	issuer := v.GetString("oidc_issuer")
	if issuer == "" {
		fmt.Fprintln(os.Stderr, "OIDC_ISSUER must be set")
		os.Exit(1)
	}

	verifier, err := auth.NewOIDCVerifier(context.Background(), issuer, v.GetString("oidc_client_id"))
	if err != nil {
		logger.Error("failed to initialize token verifier", "issuer", issuer, "error", err)
		os.Exit(1)
	}

	lambda.Start(auth.NewAuthorizer(verifier, logger).Handle)
}
