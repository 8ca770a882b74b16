package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/dorea/lib/store/lstore"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/serializer"
	"github.com/ValentinKolb/dorea/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("server")

// Option configures optional parts of the server
type Option func(s *RPCServer)

// WithEvaluator sets the script runtime used by EVAL
func WithEvaluator(e Evaluator) Option {
	return func(s *RPCServer) {
		s.evaluator = e
	}
}

// WithManager uses an existing storage manager instead of opening one from
// the configuration. The caller keeps ownership, Close does not close it.
func WithManager(m *lstore.DataBaseManager) Option {
	return func(s *RPCServer) {
		s.manager = m
		s.ownsManager = false
	}
}

// RPCServer serves the command protocol on top of one storage manager.
// The manager is shared by all connections, every command holds the
// manager lock for its own duration only.
type RPCServer struct {
	config      common.ServerConfig
	transport   transport.IRPCServerTransport
	serializer  serializer.IValueSerializer
	evaluator   Evaluator
	manager     *lstore.DataBaseManager
	ownsManager bool
	metrics     *serverMetrics
	startup     time.Time
	startupText []byte

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	flusher   sync.WaitGroup
	httpSrv   *http.Server
}

// NewRPCServer creates a new RPC server. The storage is opened here, so an
// unusable storage root fails before anything is bound.
//
// Usage:
//
//	s, err := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewDosonSerializer(),
//	)
//	if err != nil {
//		panic(err)
//	}
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IValueSerializer,
	opts ...Option,
) (*RPCServer, error) {
	s := &RPCServer{
		config:      config,
		transport:   transport,
		serializer:  serializer,
		evaluator:   unavailableEvaluator{},
		ownsManager: true,
		startup:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startupText = []byte(strconv.FormatInt(s.startup.Unix(), 10))

	if s.manager == nil {
		m, err := lstore.NewDataBaseManager(config.ToStoreConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		s.manager = m
	}

	s.metrics = newServerMetrics(s.transport.Connections)
	s.transport.RegisterHandler(s.newSession)

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return s, nil
}

// Manager returns the storage manager of the server
func (s *RPCServer) Manager() *lstore.DataBaseManager {
	return s.manager
}

// Serve listens on the configured endpoint until SIGINT/SIGTERM is received
// or Close is called, then shuts down gracefully.
func (s *RPCServer) Serve() error {
	s.start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- s.transport.Listen(s.config) }()

	select {
	case sig := <-sigCh:
		Logger.Infof("Received %s, shutting down", sig)
		return s.Close()
	case err := <-errCh:
		closeErr := s.Close()
		if err != nil {
			return err
		}
		return closeErr
	}
}

// ServeListener serves an existing listener until Close is called
func (s *RPCServer) ServeListener(listener net.Listener) error {
	s.start()
	return s.transport.Serve(listener, s.config)
}

// Close stops accepting connections, closes all sessions, stops the
// periodic flush and flushes all groups a last time
func (s *RPCServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		errs := []error{s.transport.Close()}

		if s.cancel != nil {
			s.cancel()
		}
		s.flusher.Wait()

		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			errs = append(errs, s.httpSrv.Shutdown(ctx))
			cancel()
		}

		if s.ownsManager {
			errs = append(errs, s.manager.Close())
		} else {
			errs = append(errs, s.manager.Flush())
		}
		s.metrics.close()

		err = errors.Join(errs...)
		Logger.Infof("Server stopped")
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// start launches the background tasks exactly once
func (s *RPCServer) start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel

		s.flusher.Add(1)
		go func() {
			defer s.flusher.Done()
			s.manager.Run(ctx)
		}()

		if s.config.MetricsEndpoint != "" {
			s.httpSrv = &http.Server{
				Addr:              s.config.MetricsEndpoint,
				Handler:           s.metrics.handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				Logger.Infof("Serving metrics on http://%s/metrics", s.config.MetricsEndpoint)
				if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					Logger.Errorf("Metrics endpoint failed: %v", err)
				}
			}()
		}
	})
}
