package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// AuthContext identifies the caller of a domain operation. It is passed explicitly into every
// mutating call instead of being read from ambient request state.
type AuthContext struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// NewAuthContext builds an AuthContext from validated token claims.
func NewAuthContext(claims *JWTClaims, ip, userAgent string) *AuthContext {
	if claims == nil {
		return nil
	}
	return &AuthContext{UserID: claims.UserID, Role: claims.Role, IP: ip, UserAgent: userAgent}
}

// IsAdmin reports whether the caller may run back-office operations.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleSuperAdmin)
}
