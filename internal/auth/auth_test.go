package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/baotiao/zeppelin-gateway-go/internal/storetest"
)

func TestExtractAccessKeyFromQueryParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/b1?X-Amz-Credential=ABCDEFGHIJ0123456789/20240101/us-east-1/s3/aws4_request", nil)
	if got := ExtractAccessKey(r); got != "ABCDEFGHIJ0123456789" {
		t.Fatalf("expected first 20 chars of the query credential, got %q", got)
	}
}

func TestExtractAccessKeyFromAuthorizationHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/b1", nil)
	r.Header.Set("authorization", "AWS4-HMAC-SHA256 Credential=AKIAEXAMPLE/20240101/us-east-1/s3/aws4_request, SignedHeaders=host")
	if got := ExtractAccessKey(r); got != "AKIAEXAMPLE" {
		t.Fatalf("expected access key parsed up to next slash, got %q", got)
	}
}

func TestExtractAccessKeyMissingReturnsEmpty(t *testing.T) {
	r := httptest.NewRequest("GET", "/b1", nil)
	if got := ExtractAccessKey(r); got != "" {
		t.Fatalf("expected empty access key when absent, got %q", got)
	}
}

func TestAccessKeyOnlyAuthenticateUnknownKey(t *testing.T) {
	st := storetest.New()
	r := httptest.NewRequest("GET", "/b1", nil)
	_, gerr := (AccessKeyOnly{}).Authenticate(st, r)
	if gerr == nil {
		t.Fatal("expected an auth error for an unknown access key")
	}
	if gerr.Status != 403 {
		t.Fatalf("expected 403, got %d", gerr.Status)
	}
}

func TestAccessKeyOnlyAuthenticateKnownKey(t *testing.T) {
	st := storetest.New()
	accessKey, _, _ := st.AddUser("alice")
	r := httptest.NewRequest("GET", "/b1?X-Amz-Credential="+accessKey, nil)
	user, gerr := (AccessKeyOnly{}).Authenticate(st, r)
	if gerr != nil {
		t.Fatalf("unexpected auth error: %v", gerr)
	}
	if user.Info.DisplayName != "alice" {
		t.Fatalf("expected user alice, got %q", user.Info.DisplayName)
	}
}
