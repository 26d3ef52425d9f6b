package mock

import (
	"os"
	"testing"

	"github.com/anoideaopen/proxymanager/core/namer"
	"github.com/anoideaopen/proxymanager/core/proxy"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// NewFactory creates a factory for tests. Spans are kept in the returned
// recorder, identifiers are reproducible and the log level is taken from the
// LOG variable, error by default.
func NewFactory(t *testing.T, opts ...proxy.Option) (*proxy.Factory, *tracetest.SpanRecorder) {
	t.Helper()

	lvl := logrus.ErrorLevel
	if level, ok := os.LookupEnv("LOG"); ok {
		var err error
		lvl, err = logrus.ParseLevel(level)
		require.NoError(t, err)
	}

	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.JSONFormatter{})

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	base := []proxy.Option{
		proxy.WithLogger(log),
		proxy.WithTracer(tp.Tracer("mock")),
		proxy.WithNamer(&namer.DigestNamer{Prefix: "Mock"}),
	}

	return proxy.NewFactory(append(base, opts...)...), sr
}
