// Package config loads service configuration from a YAML file, an optional
// .env file and the process environment using Viper.
//
// Services embed ServiceConfig in their own struct and pass a pointer to
// LoadConfig. Environment variables override file values; an optional prefix
// scopes them (FLOWENGINE_ENGINE_TIMEOUT sets engine.timeout).
package config
