package rankingrouter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	rankinghandlers "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/handlers"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/events"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type stubHandlers struct {
	rankinghandlers.Handlers
	got chan events.AggregationRequestedPayloadV1
}

func (s *stubHandlers) HandleAggregationRequested(_ context.Context, p *events.AggregationRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	s.got <- *p
	return nil, nil
}

func TestRankingRouterDeliversAggregationRequests(t *testing.T) {
	t.Setenv(TestEnvironmentFlag, TestEnvironmentValue)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wmLogger := watermill.NewSlogLogger(logger)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	require.NoError(t, err)

	rr := NewRankingRouter(logger, router, pubSub, pubSub, noop.NewTracerProvider().Tracer("test"), prometheus.NewRegistry())
	assert.False(t, rr.metricsEnabled)

	stub := &stubHandlers{got: make(chan events.AggregationRequestedPayloadV1, 1)}
	require.NoError(t, rr.Configure(context.Background(), stub))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()
	<-router.Running()
	t.Cleanup(func() { _ = rr.Close() })

	body, err := json.Marshal(events.AggregationRequestedPayloadV1{RankingType: 25, Date: "2026-03-14"})
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish(events.AggregationRequestedV1, message.NewMessage(watermill.NewUUID(), body)))

	select {
	case p := <-stub.got:
		assert.Equal(t, 25, p.RankingType)
		assert.Equal(t, "2026-03-14", p.Date)
	case <-time.After(5 * time.Second):
		t.Fatal("aggregation request was not delivered")
	}
}

func TestRankingRouterMetricsOutsideTests(t *testing.T) {
	t.Setenv(TestEnvironmentFlag, "production")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	rr := NewRankingRouter(logger, router, nil, nil, nil, prometheus.NewRegistry())
	assert.True(t, rr.metricsEnabled)

	rr = NewRankingRouter(logger, router, nil, nil, nil, nil)
	assert.False(t, rr.metricsEnabled)
}
