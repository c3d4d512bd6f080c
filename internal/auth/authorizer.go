package auth

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/stefando/multipartUploadAWS/internal/logging"
)

// Authorizer answers API Gateway REQUEST authorizer events.
type Authorizer struct {
	verifier TokenVerifier
	log      *slog.Logger
}

// NewAuthorizer builds an Authorizer around verifier.
func NewAuthorizer(verifier TokenVerifier, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Authorizer{verifier: verifier, log: logger}
}

// Handle allows the call when the bearer token verifies and passes the caller
// and token expiry on to the API Lambda. Every failure is a Deny, never an
// error, so API Gateway answers 403 rather than 500.
func (a *Authorizer) Handle(ctx context.Context, event events.APIGatewayCustomAuthorizerRequestTypeRequest) (events.APIGatewayCustomAuthorizerResponse, error) {
	log := a.log.With("method_arn", event.MethodArn, "request_id", event.RequestContext.RequestID)

	authHeader, exists := extractAuthorizationHeader(event.Headers)
	if !exists {
		log.WarnContext(ctx, "authorization failed", "reason", "no Authorization header")
		return createAuthorizerResponse("unauthorized", false, event.MethodArn, nil), nil
	}

	tokenInfo, err := a.verifier.Verify(ctx, stripBearerPrefix(authHeader))
	if err != nil {
		log.WarnContext(ctx, "authorization failed", "error", err)
		return createAuthorizerResponse("unauthorized", false, event.MethodArn, nil), nil
	}

	log.InfoContext(ctx, "authorization successful",
		"principal", tokenInfo.Principal(), "exp", tokenInfo.Expiration)

	authContext := map[string]interface{}{
		"username":         tokenInfo.Principal(),
		"token_expiration": strconv.FormatInt(tokenInfo.Expiration, 10), // Must be string in context
	}
	return createAuthorizerResponse(tokenInfo.Principal(), true, event.MethodArn, authContext), nil
}

// extractAuthorizationHeader retrieves the authorization header from the request
func extractAuthorizationHeader(headers map[string]string) (string, bool) {
	for key, value := range headers {
		if strings.EqualFold(key, "Authorization") && value != "" {
			return value, true
		}
	}
	return "", false
}

// stripBearerPrefix removes the "Bearer " prefix from a token if present
func stripBearerPrefix(token string) string {
	const prefix = "bearer "
	if len(token) > len(prefix) && strings.EqualFold(token[:len(prefix)], prefix) {
		return strings.TrimSpace(token[len(prefix):])
	}
	return strings.TrimSpace(token)
}

func createAuthorizerResponse(principalID string, allow bool, methodArn string, context map[string]interface{}) events.APIGatewayCustomAuthorizerResponse {
	effect := "Allow"
	if !allow {
		effect = "Deny"
	}

	response := events.APIGatewayCustomAuthorizerResponse{
		PrincipalID:    principalID,
		PolicyDocument: generatePolicy(effect, methodArn),
	}
	if context != nil {
		response.Context = context
	}
	return response
}

func generatePolicy(effect, resource string) events.APIGatewayCustomAuthorizerPolicy {
	return events.APIGatewayCustomAuthorizerPolicy{
		Version: "2012-10-17",
		Statement: []events.IAMPolicyStatement{{
			Action:   []string{"execute-api:Invoke"},
			Effect:   effect,
			Resource: []string{resource},
		}},
	}
}
