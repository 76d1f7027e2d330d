package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity claims are fixed at issuance. Decorators run between claim
// construction and signing, so the authenticator snapshots these fields
// before the decorator and verifies them after. The Metadata extension is
// the only field a decorator may write.
type immutableClaimsSnapshot struct {
	subject     string
	issuer      string
	uid         string
	email       string
	role        string
	audience    []string
	issuedAt    time.Time
	hasIssuedAt bool
	expiresAt   time.Time
	hasExpires  bool
}

func captureImmutableClaims(claims *JWTClaims) immutableClaimsSnapshot {
	snap := immutableClaimsSnapshot{
		subject:  claims.RegisteredClaims.Subject,
		issuer:   claims.RegisteredClaims.Issuer,
		uid:      claims.UID,
		email:    claims.UserEmail,
		role:     claims.UserRole,
		audience: append([]string(nil), claims.RegisteredClaims.Audience...),
	}

	if iat := claims.RegisteredClaims.IssuedAt; iat != nil {
		snap.issuedAt, snap.hasIssuedAt = iat.Time, true
	}
	if exp := claims.RegisteredClaims.ExpiresAt; exp != nil {
		snap.expiresAt, snap.hasExpires = exp.Time, true
	}

	return snap
}

func (snap immutableClaimsSnapshot) validate(claims *JWTClaims) error {
	fields := []struct {
		name   string
		before string
		after  string
	}{
		{"sub", snap.subject, claims.RegisteredClaims.Subject},
		{"iss", snap.issuer, claims.RegisteredClaims.Issuer},
		{"uid", snap.uid, claims.UID},
		{"email", snap.email, claims.UserEmail},
		{"role", snap.role, claims.UserRole},
	}

	for _, f := range fields {
		if f.before != f.after {
			return immutableClaimViolation(f.name)
		}
	}

	if !audienceEqual(claims.RegisteredClaims.Audience, snap.audience) {
		return immutableClaimViolation("aud")
	}

	if !numericDateUnchanged(claims.RegisteredClaims.IssuedAt, snap.issuedAt, snap.hasIssuedAt) {
		return immutableClaimViolation("iat")
	}
	if !numericDateUnchanged(claims.RegisteredClaims.ExpiresAt, snap.expiresAt, snap.hasExpires) {
		return immutableClaimViolation("exp")
	}

	return nil
}

func numericDateUnchanged(date *jwt.NumericDate, expected time.Time, expectedSet bool) bool {
	if !expectedSet {
		return date == nil
	}
	return date != nil && date.Time.Equal(expected)
}

func audienceEqual(a jwt.ClaimStrings, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func immutableClaimViolation(field string) error {
	clone := ErrImmutableClaimMutation.Clone()
	if clone == nil {
		return ErrImmutableClaimMutation
	}
	clone.Message = fmt.Sprintf("immutable claim mutated: %s", field)
	clone.Source = ErrImmutableClaimMutation
	return clone.WithMetadata(map[string]any{"claim": field})
}
