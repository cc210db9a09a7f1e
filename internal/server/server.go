// Package server orchestrates the host: COMMS connection, dispatcher, message journal, HTTP health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/runtime-ipc/internal/config"
	"github.com/morezero/runtime-ipc/pkg/commsutil"
	"github.com/morezero/runtime-ipc/pkg/db"
	"github.com/morezero/runtime-ipc/pkg/dispatcher"
	"github.com/morezero/runtime-ipc/pkg/events"
)

const logPrefix = "server:server"

// Server is the runtime-host orchestrator.
type Server struct {
	cfg        *config.Config
	embedded   *commsserver.Server
	nc         *comms.Conn
	pool       *pgxpool.Pool
	repo       *db.Repository
	journal    *events.AsyncRecorder
	disp       *dispatcher.Dispatcher
	sub        *comms.Subscription
	listener   net.Listener
	httpServer *http.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Run loads config, starts the host, blocks until SIGINT/SIGTERM, then shuts down.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg)

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting runtime-host", logPrefix))

	s, err := Start(context.Background(), cfg)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HealthCheckTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// SetupLogging installs the default text logger at the configured level.
func SetupLogging(cfg *config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

// Start brings up every component and returns once the host is serving.
// On failure everything started so far is torn down.
func Start(ctx context.Context, cfg *config.Config) (*Server, error) {
	runCtx, cancel := context.WithCancel(ctx)
	s := &Server{cfg: cfg, cancel: cancel}

	if err := s.start(runCtx); err != nil {
		s.teardown()
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - runtime-host is ready", logPrefix))
	return s, nil
}

func (s *Server) start(ctx context.Context) error {
	cfg := s.cfg

	// Step 1: COMMS, embedded or standalone
	url := cfg.COMMSURL
	if cfg.EmbeddedCOMMS {
		ns, err := commsutil.StartEmbedded(cfg.EmbeddedCOMMSHost, cfg.EmbeddedCOMMSPort)
		if err != nil {
			return fmt.Errorf("%s - failed to start embedded COMMS: %w", logPrefix, err)
		}
		s.embedded = ns
		url = ns.ClientURL()
	}

	nc, err := commsutil.Connect(url, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 2: journal database, optional
	recorders := events.Fanout{events.NewCommsPublisher(nc, &events.CommsPublisherOpts{
		Subject: commsutil.BuildJournalSubject(cfg.SubjectPrefix),
	})}
	if cfg.JournalEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			if err := migrate(ctx, pool, cfg.MigrationPath); err != nil {
				return err
			}
		}
		s.repo = db.NewRepository(pool)
		recorders = append(recorders, s.repo)
	} else {
		slog.Info(fmt.Sprintf("%s - DATABASE_URL not set, journal persisted to COMMS only", logPrefix))
	}

	s.journal = events.NewAsyncRecorder(recorders, cfg.JournalBuffer, cfg.RequestTimeout)

	// Step 3: dispatcher and host subscription
	s.disp = dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Recorder:      s.journal,
		ProtocolRange: cfg.ProtocolRange,
	})

	subject := commsutil.HostWildcard(cfg.SubjectPrefix)
	sub, err := nc.Subscribe(subject, dispatcher.NewCommsHandler(s.disp, dispatcher.CommsHandlerParams{
		Conn:    nc,
		Prefix:  cfg.SubjectPrefix,
		Timeout: cfg.RequestTimeout,
		Context: ctx,
	}))
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
	}
	s.sub = sub
	if err := nc.Flush(); err != nil {
		return fmt.Errorf("%s - failed to flush subscription: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))

	// Step 4: journal retention
	if s.repo != nil && cfg.JournalRetention > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			runPruner(ctx, s.repo, cfg.JournalRetention)
		}()
	}

	// Step 5: HTTP health server
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTPPort))
	if err != nil {
		return fmt.Errorf("%s - failed to listen on HTTP port %d: %w", logPrefix, cfg.HTTPPort, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.Handler()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, ln.Addr()))
		if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()
	return nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, path string) error {
	migrations, err := db.LoadMigrationFiles(path)
	if err != nil {
		return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
	}
	return nil
}

// COMMSURL returns the URL of the server the host is connected to.
func (s *Server) COMMSURL() string {
	return s.nc.ConnectedUrl()
}

// HTTPAddr returns the address the health server listens on.
func (s *Server) HTTPAddr() string {
	return s.listener.Addr().String()
}

// Dispatcher returns the host dispatcher, for registering handlers.
func (s *Server) Dispatcher() *dispatcher.Dispatcher {
	return s.disp
}

// Shutdown stops accepting messages, then closes components in reverse
// start order.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.nc != nil {
		if err := s.nc.FlushWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.teardown()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return errors.Join(errs...)
}

// teardown releases whatever was started. Safe on a partially started server.
func (s *Server) teardown() {
	s.cancel()
	s.wg.Wait()
	if s.listener != nil && s.httpServer == nil {
		s.listener.Close()
	}
	if s.journal != nil {
		s.journal.Close()
	}
	if s.nc != nil {
		s.nc.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.embedded != nil {
		s.embedded.Shutdown()
		s.embedded.WaitForShutdown()
	}
}
