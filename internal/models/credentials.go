package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
)

// CredentialPair is the access/refresh token pair issued by the remote API on login or refresh.
// The json tags follow the wire format of the API responses.
type CredentialPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (c CredentialPair) Valid() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// Encrypt encrypts both token values, a nil encryptor leaves the pair unchanged
func (c CredentialPair) Encrypt(enc Encryptor) (CredentialPair, error) {
	if enc == nil {
		return c, nil
	}
	accessToken, err := enc.Encrypt(c.AccessToken)
	if err != nil {
		return CredentialPair{}, err
	}
	refreshToken, err := enc.Encrypt(c.RefreshToken)
	if err != nil {
		return CredentialPair{}, err
	}
	return CredentialPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Decrypt decrypts both token values, a nil encryptor leaves the pair unchanged
func (c CredentialPair) Decrypt(enc Encryptor) (CredentialPair, error) {
	if enc == nil {
		return c, nil
	}
	accessToken, err := enc.Decrypt(c.AccessToken)
	if err != nil {
		return CredentialPair{}, err
	}
	refreshToken, err := enc.Decrypt(c.RefreshToken)
	if err != nil {
		return CredentialPair{}, err
	}
	return CredentialPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// AccessTokenExpiry reads the exp claim of the access token. The signature is not verified,
// the remote API is the only party that validates tokens. Opaque tokens return ok == false.
func (c CredentialPair) AccessTokenExpiry() (expiresAt time.Time, ok bool) {
	if c.AccessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiresSoon reports whether the access token is a JWT that expires within the margin.
func (c CredentialPair) ExpiresSoon(margin time.Duration) bool {
	expiresAt, ok := c.AccessTokenExpiry()
	if !ok {
		return false
	}
	return time.Now().Add(margin).After(expiresAt)
}

// Token converts the pair to an oauth2 token so it can be used with oauth2 aware http clients.
func (c CredentialPair) Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	if expiresAt, ok := c.AccessTokenExpiry(); ok {
		token.Expiry = expiresAt
	}
	return token
}

// String implements the Stringer interface for printing the credentials in logs
func (c CredentialPair) String() string {
	return fmt.Sprintf(
		"CredentialPair<AccessToken: redacted-%d-chars, RefreshToken: redacted-%d-chars>",
		len(c.AccessToken),
		len(c.RefreshToken),
	)
}
