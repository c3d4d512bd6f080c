package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/stefando/multipartUploadAWS/internal/auth"
	"github.com/stefando/multipartUploadAWS/internal/logging"
)

// Keys the authorizer writes into the API Gateway request context.
const (
	AuthorizerTokenExpiration = "token_expiration"
	AuthorizerUsername        = "username"
	AuthorizerPrincipalID     = "principalId"
)

// LambdaHandler adapts API Gateway proxy events to an http.Handler.
type LambdaHandler struct {
	router http.Handler
	log    *slog.Logger
}

// NewLambdaHandler wraps router, usually the result of NewRouter.
func NewLambdaHandler(router http.Handler, logger *slog.Logger) *LambdaHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LambdaHandler{router: router, log: logger}
}

// Handle is the lambda.Start entry point.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	httpReq, err := createHTTPRequest(ctx, req)
	if err != nil {
		h.log.ErrorContext(ctx, "failed to create HTTP request", "error", err, "path", req.Path)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"Invalid request"}`,
		}, nil
	}

	if req.RequestContext.Authorizer != nil {
		httpReq = httpReq.WithContext(h.authorizerContext(httpReq.Context(), req.RequestContext.Authorizer))
	}

	rec := newResponseRecorder()
	h.router.ServeHTTP(rec, httpReq)

	return rec.response(), nil
}

// authorizerContext copies the caller identity and token expiry set by the
// REQUEST authorizer into ctx.
func (h *LambdaHandler) authorizerContext(ctx context.Context, authorizer map[string]interface{}) context.Context {
	for _, key := range []string{AuthorizerUsername, AuthorizerPrincipalID} {
		if p, ok := authorizer[key].(string); ok && p != "" {
			ctx = auth.WithPrincipal(ctx, p)
			break
		}
	}

	raw, exists := authorizer[AuthorizerTokenExpiration]
	if !exists {
		return ctx
	}
	exp, err := parseUnixTime(raw)
	if err != nil {
		h.log.WarnContext(ctx, "ignoring token expiration from authorizer", "value", raw, "error", err)
		return ctx
	}
	return auth.WithTokenExpiration(ctx, exp)
}

// parseUnixTime accepts the authorizer's expiry either as a decimal string
// (authorizer context values are strings) or as a JSON number.
func parseUnixTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case string:
		secs, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid unix timestamp %q: %w", t, err)
		}
		return time.Unix(secs, 0), nil
	case float64:
		return time.Unix(int64(t), 0), nil
	case int64:
		return time.Unix(t, 0), nil
	case int:
		return time.Unix(int64(t), 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// createHTTPRequest creates an http.Request from an API Gateway event
func createHTTPRequest(ctx context.Context, req events.APIGatewayProxyRequest) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if req.Body != "" {
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 body: %w", err)
			}
			body = strings.NewReader(string(decoded))
		} else {
			body = strings.NewReader(req.Body)
		}
	}

	// Resolve path parameters when API Gateway hands us the resource template
	path := req.Path
	for param, value := range req.PathParameters {
		path = strings.ReplaceAll(path, "{"+param+"}", value)
	}
	if path == "" {
		path = "/"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.HTTPMethod, path, body)
	if err != nil {
		return nil, err
	}

	query := httpReq.URL.Query()
	for param, values := range req.MultiValueQueryStringParameters {
		for _, v := range values {
			query.Add(param, v)
		}
	}
	for param, value := range req.QueryStringParameters {
		if _, seen := req.MultiValueQueryStringParameters[param]; !seen {
			query.Add(param, value)
		}
	}
	httpReq.URL.RawQuery = query.Encode()

	for key, values := range req.MultiValueHeaders {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	for key, value := range req.Headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	if ip := req.RequestContext.Identity.SourceIP; ip != "" {
		httpReq.RemoteAddr = ip
	}

	return httpReq, nil
}

// responseRecorder captures the router's HTTP response
type responseRecorder struct {
	header     http.Header
	body       strings.Builder
	statusCode int
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{
		header:     http.Header{},
		statusCode: http.StatusOK,
	}
}

// Header implements the http.ResponseWriter interface
func (r *responseRecorder) Header() http.Header {
	return r.header
}

// Write implements the http.ResponseWriter interface
func (r *responseRecorder) Write(body []byte) (int, error) {
	return r.body.Write(body)
}

// WriteHeader implements the http.ResponseWriter interface
func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
}

func (r *responseRecorder) response() events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(r.header))
	for key, values := range r.header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        r.statusCode,
		Headers:           headers,
		MultiValueHeaders: map[string][]string(r.header.Clone()),
		Body:              r.body.String(),
	}
}
