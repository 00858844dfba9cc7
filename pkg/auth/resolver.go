package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/candig/fedsearch/pkg/log"
	"github.com/candig/fedsearch/pkg/storage"
	"github.com/candig/fedsearch/pkg/types"
)

// Resolver turns an inbound bearer token into a per-request AccessMap.
// In gateway mode the token is a JWT already verified by the upstream
// identity gateway; the resolver only extracts the issuer and preferred
// username and looks them up in the registry's access-rule table. In
// no-auth mode every local dataset is granted full tier.
type Resolver struct {
	store  storage.Store
	mode   types.AuthMode
	logger zerolog.Logger
}

// NewResolver creates an access resolver backed by the registry.
func NewResolver(store storage.Store, mode types.AuthMode) *Resolver {
	return &Resolver{
		store:  store,
		mode:   mode,
		logger: log.WithComponent("auth"),
	}
}

// Resolve produces the caller's AccessMap from the request headers.
//
// Failure semantics: a missing Authorization header in gateway mode is an
// authentication failure and short-circuits the request; a malformed token
// or an unknown identity degrades to an empty access map, which makes any
// access-gated operation fail with Unauthorized downstream.
func (r *Resolver) Resolve(headers http.Header) (types.AccessMap, error) {
	if r.mode == types.AuthModeNoAuth {
		return r.fullAccess()
	}

	header := headers.Get("Authorization")
	if header == "" {
		return nil, types.E(types.KindUnauthenticated, "missing Authorization header")
	}
	token := strings.TrimPrefix(header, "Bearer ")

	issuer, username, ok := identityFromToken(token)
	if !ok {
		r.logger.Warn().Msg("malformed bearer token, granting no access")
		return types.AccessMap{}, nil
	}

	rule, err := r.store.GetAccessRule(issuer, username)
	if err != nil {
		if types.KindOf(err) == types.KindNotFound {
			r.logger.Debug().
				Str("issuer", issuer).
				Str("username", username).
				Msg("no access rule for identity")
			return types.AccessMap{}, nil
		}
		return nil, types.Wrap(types.KindInternal, err, "access rule lookup failed")
	}
	return rule.Access, nil
}

// fullAccess grants full tier on every local dataset.
func (r *Resolver) fullAccess() (types.AccessMap, error) {
	datasets, err := r.store.ListDatasets()
	if err != nil {
		return nil, types.Wrap(types.KindInternal, err, "dataset listing failed")
	}
	access := make(types.AccessMap, len(datasets))
	for _, ds := range datasets {
		access[ds.Name] = types.TierFull
	}
	return access, nil
}

// identityFromToken extracts (iss, preferred_username) from the JWT
// payload without verifying the signature; verification is the gateway's
// responsibility and the key material never reaches this service.
func identityFromToken(token string) (issuer, username string, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", "", false
	}
	issuer, _ = claims["iss"].(string)
	username, _ = claims["preferred_username"].(string)
	if issuer == "" || username == "" {
		return "", "", false
	}
	return issuer, username, true
}
