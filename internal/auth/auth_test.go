package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://issuer.test"

type fakeVerifier struct {
	info *TokenInfo
	err  error
	got  string
}

func (f *fakeVerifier) Verify(ctx context.Context, rawToken string) (*TokenInfo, error) {
	f.got = rawToken
	return f.info, f.err
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}

	signingInput := enc(map[string]string{"alg": "RS256", "typ": "JWT"}) + "." + enc(claims)
	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func staticVerifier(key *rsa.PrivateKey) *OIDCVerifier {
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(testIssuer, keySet, &oidc.Config{SkipClientIDCheck: true}),
	}
}

func TestOIDCVerifier_Verify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Unix()
	v := staticVerifier(key)

	t.Run("valid", func(t *testing.T) {
		token := signToken(t, key, map[string]any{
			"iss": testIssuer, "sub": "user-1", "username": "alice", "exp": exp,
		})
		info, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", info.Subject)
		assert.Equal(t, "alice", info.Username)
		assert.Equal(t, exp, info.Expiration)
		assert.Equal(t, "alice", info.Principal())
	})

	t.Run("preferred username fallback", func(t *testing.T) {
		token := signToken(t, key, map[string]any{
			"iss": testIssuer, "sub": "user-2", "preferred_username": "bob", "exp": exp,
		})
		info, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "bob", info.Principal())
	})

	t.Run("subject only", func(t *testing.T) {
		token := signToken(t, key, map[string]any{"iss": testIssuer, "sub": "user-3", "exp": exp})
		info, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "user-3", info.Principal())
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signToken(t, key, map[string]any{"iss": testIssuer, "exp": exp})
		_, err := v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})

	t.Run("wrong key", func(t *testing.T) {
		token := signToken(t, other, map[string]any{"iss": testIssuer, "sub": "user-1", "exp": exp})
		_, err := v.Verify(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token := signToken(t, key, map[string]any{"iss": "https://evil.test", "sub": "user-1", "exp": exp})
		_, err := v.Verify(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token := signToken(t, key, map[string]any{
			"iss": testIssuer, "sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := v.Verify(context.Background(), token)
		assert.Error(t, err)
	})
}

func TestStripBearerPrefix(t *testing.T) {
	assert.Equal(t, "abc.def", stripBearerPrefix("Bearer abc.def"))
	assert.Equal(t, "abc.def", stripBearerPrefix("bearer abc.def"))
	assert.Equal(t, "abc.def", stripBearerPrefix("BEARER  abc.def"))
	assert.Equal(t, "abc.def", stripBearerPrefix("abc.def"))
	assert.Equal(t, "Bearer", stripBearerPrefix("Bearer"))
}

func TestExtractAuthorizationHeader(t *testing.T) {
	v, ok := extractAuthorizationHeader(map[string]string{"Authorization": "Bearer x"})
	assert.True(t, ok)
	assert.Equal(t, "Bearer x", v)

	v, ok = extractAuthorizationHeader(map[string]string{"authorization": "Bearer y"})
	assert.True(t, ok)
	assert.Equal(t, "Bearer y", v)

	_, ok = extractAuthorizationHeader(map[string]string{"Accept": "*/*"})
	assert.False(t, ok)

	_, ok = extractAuthorizationHeader(map[string]string{"Authorization": ""})
	assert.False(t, ok)
}

func TestAuthorizer_Handle(t *testing.T) {
	const arn = "arn:aws:execute-api:eu-central-1:123456789012:api/prod/POST/upload/mp-init"

	t.Run("allow", func(t *testing.T) {
		fv := &fakeVerifier{info: &TokenInfo{Subject: "s", Username: "alice", Expiration: 1900000000}}
		a := NewAuthorizer(fv, nil)

		resp, err := a.Handle(context.Background(), events.APIGatewayCustomAuthorizerRequestTypeRequest{
			MethodArn: arn,
			Headers:   map[string]string{"authorization": "Bearer tok"},
		})
		require.NoError(t, err)
		assert.Equal(t, "tok", fv.got)
		assert.Equal(t, "alice", resp.PrincipalID)
		require.Len(t, resp.PolicyDocument.Statement, 1)
		assert.Equal(t, "Allow", resp.PolicyDocument.Statement[0].Effect)
		assert.Equal(t, []string{arn}, resp.PolicyDocument.Statement[0].Resource)
		assert.Equal(t, "1900000000", resp.Context["token_expiration"])
		assert.Equal(t, "alice", resp.Context["username"])
	})

	t.Run("deny on missing header", func(t *testing.T) {
		fv := &fakeVerifier{}
		a := NewAuthorizer(fv, nil)

		resp, err := a.Handle(context.Background(), events.APIGatewayCustomAuthorizerRequestTypeRequest{MethodArn: arn})
		require.NoError(t, err)
		assert.Equal(t, "Deny", resp.PolicyDocument.Statement[0].Effect)
		assert.Empty(t, fv.got)
		assert.Nil(t, resp.Context)
	})

	t.Run("deny on invalid token", func(t *testing.T) {
		a := NewAuthorizer(&fakeVerifier{err: errors.New("bad signature")}, nil)

		resp, err := a.Handle(context.Background(), events.APIGatewayCustomAuthorizerRequestTypeRequest{
			MethodArn: arn,
			Headers:   map[string]string{"Authorization": "Bearer tok"},
		})
		require.NoError(t, err)
		assert.Equal(t, "unauthorized", resp.PrincipalID)
		assert.Equal(t, "Deny", resp.PolicyDocument.Statement[0].Effect)
	})
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	_, ok := TokenExpiration(ctx)
	assert.False(t, ok)
	_, ok = Principal(ctx)
	assert.False(t, ok)

	exp := time.Unix(1900000000, 0)
	ctx = WithTokenExpiration(ctx, exp)
	ctx = WithPrincipal(ctx, "alice")

	got, ok := TokenExpiration(ctx)
	assert.True(t, ok)
	assert.True(t, exp.Equal(got))

	p, ok := Principal(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", p)

	_, ok = TokenExpiration(WithTokenExpiration(context.Background(), time.Time{}))
	assert.False(t, ok)
}
