package domain

import "strings"

// Token is a tracked contract address, keyed by its symbol.
type Token struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
}

// NormalizeAddress lower-cases and trims an address the way the explorer returns it.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
