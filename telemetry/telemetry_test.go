// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
)

func TestInit(t *testing.T) {
	t.Run("will return a no-op shutdown", func(t *testing.T) {
		t.Run("if no exporter is configured", func(t *testing.T) {
			shutdown, err := Init(context.Background(), Config{Exporter: ExporterNone})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Nil(t, shutdown(context.Background())) {
				return
			}
		})
	})

	t.Run("will export spans to the stdout writer", func(t *testing.T) {
		var buf bytes.Buffer
		shutdown, err := Init(
			context.Background(),
			Config{Exporter: ExporterStdout, ServiceName: "test"},
			StdoutWriter(&buf),
		)
		if !assert.Nil(t, err) {
			return
		}

		_, span := otel.Tracer("telemetry_test").Start(context.Background(), "Boundary.Respond")
		span.End()

		err = shutdown(context.Background())
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Contains(t, buf.String(), "Boundary.Respond") {
			return
		}
	})

	t.Run("will create an otlp exporter without connecting", func(t *testing.T) {
		shutdown, err := Init(
			context.Background(),
			Config{Exporter: ExporterOTLP, Endpoint: "localhost:4317", Insecure: true},
		)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.NotNil(t, shutdown) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		shutdown(ctx)
	})

	t.Run("will return an error if the exporter is unknown", func(t *testing.T) {
		_, err := Init(context.Background(), Config{Exporter: "zipkin"})

		var uerr UnknownExporterError
		if !assert.ErrorAs(t, err, &uerr) {
			return
		}
		if !assert.Equal(t, "zipkin", uerr.Exporter) {
			return
		}
	})
}
