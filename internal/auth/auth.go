// Package auth implements the gateway's auth gate (spec §4.4): access-key
// extraction, user lookup, and a pluggable signature-verification hook.
package auth

import (
	"net/http"
	"strings"

	"github.com/baotiao/zeppelin-gateway-go/internal/gwerr"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

const credentialMarker = "Credential="

// ExtractAccessKey implements the priority order from spec §4.4: the
// X-Amz-Credential query parameter (first 20 characters) takes
// precedence over the authorization header's Credential= field.
func ExtractAccessKey(r *http.Request) string {
	if cred := r.URL.Query().Get("X-Amz-Credential"); cred != "" {
		if len(cred) > 20 {
			return cred[:20]
		}
		return cred
	}
	authHeader := r.Header.Get("authorization")
	if authHeader == "" {
		return ""
	}
	pos := strings.Index(authHeader, credentialMarker)
	if pos < 0 {
		return ""
	}
	rest := authHeader[pos+len(credentialMarker):]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		return rest[:slash]
	}
	return rest
}

// Authenticator is the pluggable signature-verification capability (spec
// §9: "Auth and signature hooks should be abstract capabilities"). Every
// variant still performs the access-key lookup; they differ in whether
// they additionally verify a signature.
type Authenticator interface {
	// Authenticate resolves r to a store.User via its access key, then
	// applies whatever signature check this variant performs.
	Authenticate(st store.Store, r *http.Request) (*store.User, *gwerr.Error)
}

// AccessKeyOnly looks the user up by access key and performs no
// signature check — the current deployment's default, matching the
// original gateway's request authorization being left disabled (spec
// §4.4, original_source/src/zgw_conn.cc's commented-out zgw_auth.Auth
// call).
type AccessKeyOnly struct{}

func (AccessKeyOnly) Authenticate(st store.Store, r *http.Request) (*store.User, *gwerr.Error) {
	accessKey := ExtractAccessKey(r)
	user, err := st.GetUser(accessKey)
	if err != nil {
		return nil, gwerr.Auth(gwerr.CodeInvalidAccessKeyId, accessKey)
	}
	return user, nil
}

// NoAuth always fails lookups except for display-name-free requests; it
// exists to make explicit that admin endpoints take this path at the
// router level (spec §4.3 "admin_list_users"/"admin_put_user" are
// unauthenticated) rather than silently skipping the gate.
type NoAuth struct{}

func (NoAuth) Authenticate(store.Store, *http.Request) (*store.User, *gwerr.Error) {
	return nil, nil
}
