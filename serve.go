package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/hashicorp/go-multierror"
	"github.com/vipnode/junior/jsonrpc2/ws"
	"github.com/vipnode/junior/jsonrpc2/ws/gobwas"
	"github.com/vipnode/junior/jsonrpc2/ws/gorilla"
	"github.com/vipnode/junior/kv"
	"github.com/vipnode/junior/kv/store"
	"github.com/vipnode/junior/kv/store/badger"
	"github.com/vipnode/junior/kv/store/memory"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// findDataDir returns a valid data dir, will create it if it doesn't
// exist.
func findDataDir(overridePath string) (string, error) {
	path := overridePath
	if path == "" {
		path = xdg.New("vipnode", "junior").DataHome()
	}
	err := os.MkdirAll(path, 0700)
	return path, err
}

func openStore(driver string, dataDir string) (store.Store, error) {
	switch driver {
	case "memory":
		return memory.New(), nil
	case "badger", "persist":
		dir, err := findDataDir(dataDir)
		if err != nil {
			return nil, err
		}
		s, err := badger.OpenDir(dir)
		if err != nil {
			return nil, ErrExplain{err, fmt.Sprintf("Failed to open the badger store in %q. Is another junior process using it?", dir)}
		}
		logger.Infof("Persistent store using badger backend: %s", dir)
		return s, nil
	}
	return nil, ErrExplain{fmt.Errorf("unknown storage driver: %q", driver), "Use --store=memory or --store=badger."}
}

func websocketUpgrader(name string) (ws.Upgrader, error) {
	switch name {
	case "gorilla":
		return &gorilla.Upgrader{}, nil
	case "gobwas":
		return &gobwas.Upgrader{}, nil
	case "off", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown websocket implementation: %q", name)
}

func runServe(options Options) (err error) {
	storeDriver, err := openStore(options.Serve.Store, options.Serve.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := storeDriver.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	upgrader, err := websocketUpgrader(options.Serve.Websocket)
	if err != nil {
		return err
	}

	handler := &server{
		ws:     upgrader,
		header: http.Header{},
	}
	handler.MaxContentLength = options.Serve.MaxContent
	handler.MaxConcurrency = options.Serve.Concurrency
	handler.OmitContentType = options.Serve.NoContentType
	if options.Serve.RateLimit > 0 {
		handler.Limiter = rate.NewLimiter(rate.Limit(options.Serve.RateLimit), options.Serve.Burst)
	}
	if options.Serve.AllowOrigin != "" {
		handler.header.Set("Access-Control-Allow-Origin", options.Serve.AllowOrigin)
	}

	svc := &kv.Service{
		Store:   storeDriver,
		Version: fmt.Sprintf("junior/%s", Version),
	}
	if err := handler.Register("kv_", svc); err != nil {
		return err
	}
	logger.Debugf("Registered methods: %s", strings.Join(handler.MethodNames(), ", "))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	httpServer := &http.Server{
		Handler: handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	var listener net.Listener
	if options.Serve.TLSHost != "" {
		if !strings.HasSuffix(options.Serve.Bind, ":443") {
			logger.Warningf("Ignoring --bind value (%q) because it's not 443 and --tlshost is set.", options.Serve.Bind)
		}
		logger.Infof("Starting junior (version %s), acquiring ACME certificate and listening on: https://%s", Version, options.Serve.TLSHost)
		listener = autocert.NewListener(options.Serve.TLSHost)
	} else {
		listener, err = net.Listen("tcp", options.Serve.Bind)
		if err != nil {
			if strings.HasSuffix(err.Error(), "bind: permission denied") {
				err = ErrExplain{err, "Binding on low-numbered ports requires the CAP_NET_BIND_SERVICE capability."}
			}
			return err
		}
		logger.Infof("Starting junior (version %s), listening on: http://%s", Version, listener.Addr())
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	select {
	case err = <-errChan:
		if strings.HasSuffix(err.Error(), "bind: permission denied") {
			err = ErrExplain{err, "Hosting with autocert requires CAP_NET_BIND_SERVICE capability permission to bind on low-numbered ports. See: https://superuser.com/questions/710253/allow-non-root-process-to-bind-to-port-80-and-443/892391"}
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
