package config

import "fmt"

type EncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

type CredentialsConfig struct {
	Encryption         EncryptionConfig
	ExpiresSoonMinutes int
	CookieName         string
	// NOTE: UnsafeInsecureCookie should only be used for local development over plain http
	UnsafeInsecureCookie bool
}

func (c *CredentialsConfig) Validate() error {
	if c.Encryption.Enabled && len(c.Encryption.SecretKey) != 32 {
		return fmt.Errorf(
			"credentials encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.Encryption.SecretKey),
		)
	}
	if c.ExpiresSoonMinutes <= 0 {
		return fmt.Errorf("invalid value for ExpiresSoonMinutes (%d)", c.ExpiresSoonMinutes)
	}
	if c.CookieName == "" {
		return fmt.Errorf("the session cookie name cannot be empty")
	}
	return nil
}
