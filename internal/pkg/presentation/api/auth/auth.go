package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-asset-telemetry/internal/pkg/infrastructure/tracing"
	"github.com/go-chi/jwtauth/v5"
	"github.com/open-policy-agent/opa/rego"
	"go.opentelemetry.io/otel"
)

type accessContextKey struct{ name string }

var accessCtxKey = &accessContextKey{"access"}

var tracer = otel.Tracer("iot-asset-telemetry/authz")

type Scope string

const (
	TelemetryRead    Scope = "telemetry.read"
	TelemetryWrite   Scope = "telemetry.write"
	MaintenanceWrite Scope = "maintenance.write"
)

type Enticator interface {
	RequireAccess(scopes ...Scope) func(http.Handler) http.Handler
}

type access struct {
	subject string
	scopes  map[Scope]struct{}
}

type impl struct {
	query rego.PreparedEvalQuery
}

// RequireAccess evaluates the policy with the bearer token and the requested
// scopes. The policy answers false or an object with the token subject and
// the scopes it grants.
func (a *impl) RequireAccess(scopes ...Scope) func(http.Handler) http.Handler {
	requested := make([]string, 0, len(scopes))
	for _, s := range scopes {
		requested = append(requested, string(s))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error

			ctx, span := tracer.Start(r.Context(), "check-auth")
			defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

			logger := logging.GetLoggerFromContext(ctx)

			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				err = errors.New("authorization header missing")
				logger.Info().Msg(err.Error())
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			input := map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"token":  token,
				"scopes": requested,
			}

			var acc access
			acc, err = a.evaluate(ctx, input)
			if err != nil {
				if errors.Is(err, errUnauthorized) {
					logger.Warn().Msg(err.Error())
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}

				logger.Error().Err(err).Msg("opa eval failed")
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			for _, s := range scopes {
				if _, ok := acc.scopes[s]; !ok {
					err = fmt.Errorf("%w: scope %s not granted", errUnauthorized, s)
					logger.Warn().Str("subject", acc.subject).Msg(err.Error())
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accessCtxKey, acc)))
		})
	}
}

var errUnauthorized = errors.New("authorization failed")

func (a *impl) evaluate(ctx context.Context, input map[string]any) (access, error) {
	results, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return access{}, err
	}

	if len(results) == 0 {
		return access{}, errors.New("opa query could not be satisfied")
	}

	binding := results[0].Bindings["x"]

	if allowed, ok := binding.(bool); ok && !allowed {
		return access{}, errUnauthorized
	}

	result, ok := binding.(map[string]any)
	if !ok {
		return access{}, errors.New("unexpected result type")
	}

	subject, ok := result["subject"].(string)
	if !ok || subject == "" {
		return access{}, errors.New("bad response from authz policy engine: subject missing")
	}

	acc := access{subject: subject, scopes: map[Scope]struct{}{}}

	granted, _ := result["scopes"].([]any)
	for _, g := range granted {
		if s, ok := g.(string); ok {
			acc.scopes[Scope(s)] = struct{}{}
		}
	}

	return acc, nil
}

func NewAuthenticator(ctx context.Context, policies io.Reader) (Enticator, error) {
	module, err := io.ReadAll(policies)
	if err != nil {
		return nil, fmt.Errorf("unable to read authz policies: %s", err.Error())
	}

	query, err := rego.New(
		rego.Query("x = data.biotrakr.authz.allow"),
		rego.Module("biotrakr.rego", string(module)),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}

	return &impl{query: query}, nil
}

// SubjectFromContext returns the authenticated subject, or an empty string
// for requests that did not pass through RequireAccess.
func SubjectFromContext(ctx context.Context) string {
	acc, ok := ctx.Value(accessCtxKey).(access)
	if !ok {
		return ""
	}
	return acc.subject
}

// WithSubject stores an already authenticated subject in the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, accessCtxKey, access{subject: subject, scopes: map[Scope]struct{}{}})
}
