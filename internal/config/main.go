package config

import (
	"fmt"
	"strings"
)

type RunningEnvironment string

const (
	Development RunningEnvironment = "development"
	Production  RunningEnvironment = "production"
)

type Config struct {
	RunningEnvironment RunningEnvironment
	DebugMode          bool
	Server             ServerConfig
	API                APIConfig
	Credentials        CredentialsConfig
	Redis              RedisConfig
	Monitoring         MonitoringConfig
}

// RedactedString is used for secrets so that they never end up in logs or printed structs.
type RedactedString string

func (r RedactedString) String() string {
	return fmt.Sprintf("<redacted-%d-chars>", len(r))
}

func (r RedactedString) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r RedactedString) MarshalBinary() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r RedactedString) MarshalJSON() ([]byte, error) {
	return []byte("\"" + r.String() + "\""), nil
}

func (c *Config) Validate() error {
	switch RunningEnvironment(strings.ToLower(string(c.RunningEnvironment))) {
	case Development, Production:
	default:
		return fmt.Errorf("unknown running environment %q (must be one of development, production)", c.RunningEnvironment)
	}
	err := c.Server.Validate()
	if err != nil {
		return err
	}
	err = c.API.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.Credentials.Validate()
	if err != nil {
		return err
	}
	err = c.Redis.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	return c.Monitoring.Validate()
}
