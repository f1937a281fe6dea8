package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, Shutdown(context.Background(), nil))
}

func TestBusinessEventsRecordSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	be := NewBusinessEvents()
	_, span := be.TraceReaction(context.Background(), "post", 4, 2, "like")
	span.End()
	_, span = be.TraceNotify(context.Background(), "mention", 3)
	RecordError(span, errors.New("push failed"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "reaction.toggle", ended[0].Name())
	assert.Equal(t, "notification.notify", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
}

func TestInstrumentedHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewInstrumentedHTTPClient(0)
	assert.Equal(t, 30*time.Second, client.Timeout)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
