// Package config loads key/value configuration from .env files and the process environment.
package config

type Config interface {
	Get(string) string
	GetOrDefault(string, string) string
}
