// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// MinSecretLength is the shortest HS256 secret accepted, in bytes.
const MinSecretLength = 32

// DefaultClockSkew is the leeway applied to exp and nbf checks.
const DefaultClockSkew = 30 * time.Second

// identityClaims are the non-registered claims read from a token. The
// names follow the identity provider's user-pool conventions.
type identityClaims struct {
	CognitoUsername string   `json:"cognito:username,omitempty"`
	Username        string   `json:"username,omitempty"`
	Email           string   `json:"email,omitempty"`
	Groups          []string `json:"cognito:groups,omitempty"`
}

// JWTConfig configures a JWTAuthProvider.
type JWTConfig struct {
	// Secret is the shared HS256 key. At least MinSecretLength bytes.
	Secret []byte

	// Issuer, when set, must equal the token's iss claim.
	Issuer string

	// Audience, when set, must appear in the token's aud claim.
	Audience string

	// ClockSkew is the leeway for time-based claims.
	// Default: DefaultClockSkew.
	ClockSkew time.Duration

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

// JWTAuthProvider validates HS256-signed JWTs.
//
// # Description
//
// Verifies the signature, exp/nbf (with leeway), and the optional issuer
// and audience, then maps claims into AuthInfo:
//
//	sub                     -> UserID (required)
//	cognito:username        -> Username
//	username                -> Username when cognito:username is absent
//	email                   -> Email
//	cognito:groups          -> Roles
//
// # Thread Safety
//
// Safe for concurrent use. The provider is immutable after construction.
type JWTAuthProvider struct {
	cfg JWTConfig
}

// NewJWTAuthProvider validates cfg and builds the provider.
func NewJWTAuthProvider(cfg JWTConfig) (*JWTAuthProvider, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.ClockSkew == 0 {
		cfg.ClockSkew = DefaultClockSkew
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTAuthProvider{cfg: cfg}, nil
}

// Validate parses and verifies raw and returns the caller's identity.
func (p *JWTAuthProvider) Validate(_ context.Context, raw string) (*AuthInfo, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", ErrUnauthorized)
	}

	var std jwt.Claims
	var ids identityClaims
	if err := tok.Claims(p.cfg.Secret, &std, &ids); err != nil {
		return nil, fmt.Errorf("verify token signature: %w", ErrUnauthorized)
	}

	expected := jwt.Expected{
		Issuer: p.cfg.Issuer,
		Time:   p.cfg.Now(),
	}
	if p.cfg.Audience != "" {
		expected.AnyAudience = jwt.Audience{p.cfg.Audience}
	}
	if err := std.ValidateWithLeeway(expected, p.cfg.ClockSkew); err != nil {
		return nil, fmt.Errorf("token claims rejected (%v): %w", err, ErrUnauthorized)
	}
	if std.Subject == "" {
		return nil, fmt.Errorf("token has no subject: %w", ErrUnauthorized)
	}

	username := ids.CognitoUsername
	if username == "" {
		username = ids.Username
	}
	return &AuthInfo{
		UserID:   std.Subject,
		Username: username,
		Email:    ids.Email,
		Roles:    ids.Groups,
	}, nil
}

var _ AuthProvider = (*JWTAuthProvider)(nil)

// =============================================================================
// Token issuing
// =============================================================================

// TokenRequest describes a token to mint with IssueToken.
type TokenRequest struct {
	Subject  string
	Username string
	Email    string
	Groups   []string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// IssueToken signs an HS256 JWT carrying the same claims JWTAuthProvider
// reads. Used by the token CLI command and by tests.
func IssueToken(secret []byte, req TokenRequest) (string, error) {
	if req.Subject == "" {
		return "", errors.New("subject is required")
	}
	if req.TTL <= 0 {
		req.TTL = time.Hour
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	now := time.Now()
	std := jwt.Claims{
		Subject:   req.Subject,
		Issuer:    req.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(req.TTL)),
	}
	if req.Audience != "" {
		std.Audience = jwt.Audience{req.Audience}
	}
	ids := identityClaims{
		CognitoUsername: req.Username,
		Email:           req.Email,
		Groups:          req.Groups,
	}

	raw, err := jwt.Signed(signer).Claims(std).Claims(ids).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}
