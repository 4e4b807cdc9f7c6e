package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/surakarta/internal/config"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/repository"
	"github.com/rocketscienceinc/surakarta/internal/repository/storage"
	"github.com/rocketscienceinc/surakarta/internal/transport"
	"github.com/rocketscienceinc/surakarta/internal/transport/rpc"
	"github.com/rocketscienceinc/surakarta/internal/transport/stream"
	"github.com/rocketscienceinc/surakarta/internal/transport/websocket"
	"github.com/rocketscienceinc/surakarta/internal/usecase"
	"github.com/rocketscienceinc/surakarta/transport/rest"
)

const (
	listenAttempts  = 10
	shutdownTimeout = 5 * time.Second
)

var ErrUnknownTransport = errors.New("unknown transport")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	peerTransport, err := newTransport(logger, conf)
	if err != nil {
		return err
	}

	endpoint, err := listen(ctx, log, peerTransport, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = endpoint.Close(); err != nil {
			log.Error("could not close endpoint", "error", err)
		}
	}()

	// stays nil when the journal is disabled
	var matches repository.MatchRepository

	if conf.Journal.Enabled {
		redisStorage, redisErr := storage.NewRedisStorage(ctx, conf.Journal.Redis.Host, conf.Journal.Redis.Port)
		if redisErr != nil {
			return fmt.Errorf("could not connect to redis storage: %w", redisErr)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		matches = repository.NewMatchRepository(redisStorage.Connection)
	}

	session := usecase.NewGameSession(logger, endpoint, matches, usecase.Options{
		OutboxSize: conf.OutboxSize,
	})

	sessionErrCh := make(chan error, 1)
	go func() {
		sessionErrCh <- session.Run(ctx)
	}()

	if conf.PeerAddress != "" {
		go connectOnStart(ctx, log, session, conf.PeerAddress, endpoint.Port())
	}

	handler := rest.NewRouter(logger, session, matches, endpoint.Port)
	httpServer := rest.NewServer(logger, conf.HTTPPort, handler)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		if httpErr := httpServer.Start(); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()

		if err = httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("could not shut down HTTP server", "error", err)
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-sessionErrCh:
		if err != nil {
			return fmt.Errorf("game session error: %w", err)
		}

		return nil
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		<-sessionErrCh
		return nil
	}
}

func newTransport(logger *slog.Logger, conf *config.Config) (transport.Transport, error) {
	switch conf.Transport {
	case transport.KindStream:
		return stream.New(logger, conf.SendTimeout), nil
	case transport.KindRPC:
		return rpc.New(logger, conf.AdvertiseHost, conf.SendTimeout), nil
	case transport.KindWebsocket:
		return websocket.New(logger, conf.SendTimeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, conf.Transport)
	}
}

// listen binds the configured port, or a random one from the port range when none is set.
func listen(ctx context.Context, log *slog.Logger, peerTransport transport.Transport, conf *config.Config) (transport.Endpoint, error) {
	if conf.ListenPort != 0 {
		endpoint, err := peerTransport.Listen(ctx, conf.ListenPort)
		if err != nil {
			return nil, fmt.Errorf("could not open endpoint: %w", err)
		}

		return endpoint, nil
	}

	var lastErr error
	for range listenAttempts {
		port := entity.RandomPort(conf.PortRange.Min, conf.PortRange.Max)

		endpoint, err := peerTransport.Listen(ctx, port)
		if err == nil {
			return endpoint, nil
		}

		log.Debug("port is busy, trying another", "port", port, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("could not open endpoint after %d attempts: %w", listenAttempts, lastErr)
}

func connectOnStart(ctx context.Context, log *slog.Logger, session *usecase.GameSession, address string, defaultPort int) {
	remote, err := entity.ParseConnection(address, defaultPort)
	if err != nil {
		log.Error("invalid peer address", "address", address, "error", err)
		return
	}

	if err = session.ConnectToAdversary(ctx, remote); err != nil {
		log.Warn("could not connect to peer", "peer", remote.String(), "error", err)
	}
}
