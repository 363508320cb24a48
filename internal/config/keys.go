// Package config provides API key management utilities.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured for a provider.
var ErrNoAPIKey = errors.New("no API key configured")

// providerKeyVars maps a provider name to its credential variable.
var providerKeyVars = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// KeyVarFor returns the credential variable name for a provider.
func KeyVarFor(provider string) string {
	if v, ok := providerKeyVars[strings.ToLower(provider)]; ok {
		return v
	}
	return "OPENAI_API_KEY"
}

// ResolveEnv builds the credential environment for a team: declared env
// values win, the process environment fills the gaps. ${VAR} references in
// declared values are expanded.
func ResolveEnv(declared map[string]string) map[string]string {
	env := make(map[string]string, len(declared)+len(providerKeyVars))
	for _, v := range providerKeyVars {
		if val := os.Getenv(v); val != "" {
			env[v] = val
		}
	}
	for k, v := range declared {
		expanded := os.ExpandEnv(v)
		if expanded != "" && !strings.HasPrefix(expanded, "${") {
			env[k] = expanded
		}
	}
	return env
}

// RequireKey checks that the environment carries a credential for the
// provider. Bedrock-backed agents resolve credentials through the AWS chain
// and skip this check.
func RequireKey(provider string, env map[string]string) error {
	keyVar := KeyVarFor(provider)
	key := env[keyVar]
	if key == "" {
		return fmt.Errorf("%w: %s is not set", ErrNoAPIKey, keyVar)
	}
	return ValidateAPIKey(provider, key)
}

// ValidateAPIKey performs basic format validation on an API key. It checks
// format but does not verify the key with the provider.
func ValidateAPIKey(provider, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if strings.ToLower(provider) == "anthropic" {
		if !strings.HasPrefix(key, "sk-ant-") {
			return errors.New("invalid API key format: expected 'sk-ant-' prefix")
		}
		if len(key) < 20 {
			return errors.New("invalid API key format: key too short")
		}
	}
	return nil
}
