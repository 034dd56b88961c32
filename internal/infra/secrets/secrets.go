// Package secrets provides credential sources for provider API keys.
package secrets

import (
	"os"
	"strings"
)

// Env looks secrets up in the process environment.
type Env struct{}

func (Env) Lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Static serves secrets from a fixed map, typically the config file's secrets section.
type Static map[string]string

func (s Static) Lookup(name string) (string, bool) {
	v := strings.TrimSpace(s[name])
	return v, v != ""
}

// Source is the lookup contract shared by every source.
type Source interface {
	Lookup(name string) (string, bool)
}

// Chain returns the first present value.
type Chain []Source

func (c Chain) Lookup(name string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}
