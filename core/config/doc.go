// Package config provides type-safe environment variable loading with
// per-type caching using Go generics.
//
// The package loads a .env file once on first use and parses environment
// variables into struct fields via caarlos0/env struct tags:
//
//	type WebSocketConfig struct {
//		ReadBufferSize  int `env:"WS_READ_BUFFER_SIZE" envDefault:"1024"`
//		WriteBufferSize int `env:"WS_WRITE_BUFFER_SIZE" envDefault:"1024"`
//	}
//
//	var cfg WebSocketConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	// Or panic on failure during startup:
//	config.MustLoad(&cfg)
//
// Each configuration type is parsed at most once per process; later calls
// for the same type return the cached value.
package config
