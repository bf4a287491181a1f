package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func TestIssueVerify(t *testing.T) {
	iss := NewIssuer("s3cret", "bosun", time.Hour)
	raw, exp, err := iss.Issue("u-1", "org-1", RoleManager)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Errorf("exp = %v, want about 1h from now", exp)
	}

	claims, err := iss.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID() != "u-1" || claims.OrgID != "org-1" || claims.Role != RoleManager {
		t.Errorf("claims = %+v", claims)
	}
}

func TestIssue_Rejects(t *testing.T) {
	iss := NewIssuer("s3cret", "bosun", 0)
	if _, _, err := iss.Issue("u-1", "org-1", "captain"); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, _, err := iss.Issue("", "org-1", RoleMember); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestVerify_Rejects(t *testing.T) {
	iss := NewIssuer("s3cret", "bosun", time.Hour)
	other := NewIssuer("different", "bosun", time.Hour)
	foreign, _, _ := other.Issue("u-1", "org-1", RoleAdmin)
	wrongIssuer, _, _ := NewIssuer("s3cret", "elsewhere", time.Hour).Issue("u-1", "org-1", RoleAdmin)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OrgID: "org-1", Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u-1", Issuer: "bosun",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredRaw, _ := expired.SignedString([]byte("s3cret"))

	tests := map[string]string{
		"wrong secret": foreign,
		"wrong issuer": wrongIssuer,
		"expired":      expiredRaw,
		"garbage":      "not.a.token",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := iss.Verify(raw); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClaimsHas(t *testing.T) {
	tests := []struct {
		role, need string
		want       bool
	}{
		{RoleAdmin, RoleManager, true},
		{RoleManager, RoleManager, true},
		{RoleMember, RoleManager, false},
		{RoleMember, RoleMember, true},
		{"ghost", RoleMember, false},
	}
	for _, tt := range tests {
		c := &Claims{Role: tt.role}
		if got := c.Has(tt.need); got != tt.want {
			t.Errorf("Claims{%s}.Has(%s) = %v, want %v", tt.role, tt.need, got, tt.want)
		}
	}
}

func newRouter(iss *Issuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(iss))
	r.GET("/read", func(c *gin.Context) { c.String(http.StatusOK, FromContext(c).UserID()) })
	r.POST("/edit", RequireRole(RoleManager), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestMiddleware(t *testing.T) {
	iss := NewIssuer("s3cret", "bosun", time.Hour)
	r := newRouter(iss)
	member, _, _ := iss.Issue("u-m", "org-1", RoleMember)
	manager, _, _ := iss.Issue("u-x", "org-1", RoleManager)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/read", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/read", "nope", http.StatusUnauthorized},
		{"member reads", http.MethodGet, "/read", member, http.StatusOK},
		{"member edits", http.MethodPost, "/edit", member, http.StatusForbidden},
		{"manager edits", http.MethodPost, "/edit", manager, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && !strings.Contains(w.Body.String(), "u-m") {
				t.Errorf("body = %q, want user id", w.Body.String())
			}
		})
	}
}
