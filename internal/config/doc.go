// Package config provides centralized configuration for the analyzer.
// Configuration is loaded from three sources in order of precedence:
//
//  1. Environment variables, prefixed P2P_ (highest priority)
//  2. An optional YAML configuration file
//  3. Built-in defaults matching a Binance P2P order export
//
// The resulting Config is constructed once at startup, validated, and
// passed by reference into every component. No component reads ambient
// global configuration state.
package config
