package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/iburimskiy/synapse-field/internal/logging"
)

// MetricsServer serves /metrics until Shutdown.
type MetricsServer struct {
	srv *http.Server
	lis net.Listener
}

// ServeMetrics binds addr and serves the collector in the background. The
// listener is opened before returning so a bad address fails here.
func ServeMetrics(addr string, collector *FrameCollector, log logging.Logger) (*MetricsServer, error) {
	if log == nil {
		log = logging.Noop()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", lis.Addr().String()))
	return &MetricsServer{srv: srv, lis: lis}, nil
}

// Addr is the bound address, useful when addr asked for port 0.
func (m *MetricsServer) Addr() string { return m.lis.Addr().String() }

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.srv.Shutdown(ctx)
}
