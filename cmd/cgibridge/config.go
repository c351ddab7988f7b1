// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"log/slog"
	"time"

	"github.com/z5labs/cgibridge/codec"
	"github.com/z5labs/cgibridge/config"
	"github.com/z5labs/cgibridge/runtime/persistent"
	"github.com/z5labs/cgibridge/telemetry"
)

// EnvPrefix marks the environment variables which configure the bridge.
const EnvPrefix = "CGIBRIDGE_"

// Config is the complete configuration of the cgibridge command.
type Config struct {
	Mode           string `config:"mode"`
	MaxBodySize    int64  `config:"max_body_size"`
	MaxHeaderBytes int    `config:"max_header_bytes"`
	Protocol       string `config:"protocol"`
	ReadBufferSize int    `config:"read_buffer_size"`

	// Dispatcher is the default route.
	Dispatcher string        `config:"dispatcher"`
	Routes     []RouteConfig `config:"routes"`

	Upstream UpstreamConfig `config:"upstream"`

	OTel telemetry.Config `config:"otel"`

	Log struct {
		Level slog.Level `config:"level"`
	} `config:"log"`
}

// RouteConfig sends requests matching Method and Pattern to a built-in
// dispatcher. A Method of "*" matches every method.
type RouteConfig struct {
	Method     string `config:"method"`
	Pattern    string `config:"pattern"`
	Dispatcher string `config:"dispatcher"`
}

// UpstreamConfig configures the "upstream" dispatcher.
type UpstreamConfig struct {
	URL         string        `config:"url"`
	Timeout     time.Duration `config:"timeout"`
	MaxBodySize int64         `config:"max_body_size"`

	Circuit struct {
		MaxRequests uint32        `config:"max_requests"`
		Interval    time.Duration `config:"interval"`
		Timeout     time.Duration `config:"timeout"`
		TripCount   uint32        `config:"trip_count"`
	} `config:"circuit"`
}

func defaults() config.Map {
	return config.Map{
		"mode":             modeCGI,
		"max_body_size":    codec.DefaultMaxBodySize,
		"max_header_bytes": codec.DefaultMaxHeaderBytes,
		"protocol":         codec.DefaultProtocol,
		"read_buffer_size": persistent.DefaultReadBufferSize,
		"dispatcher":       dispatcherEnv,
		"upstream": map[string]any{
			"timeout":       "30s",
			"max_body_size": codec.DefaultMaxBodySize,
			"circuit": map[string]any{
				"max_requests": 1,
				"timeout":      "60s",
				"trip_count":   5,
			},
		},
		"otel": map[string]any{
			"exporter":     telemetry.ExporterNone,
			"service_name": "cgibridge",
		},
		"log": map[string]any{
			"level": "info",
		},
	}
}
