package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-service/internal/config"
	"blog-service/internal/factory"
	"blog-service/internal/handler"
	"blog-service/internal/util"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		util.Fatal("Invalid configuration", util.ErrorField(err))
	}

	f, err := factory.NewFactory(context.Background(), cfg)
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	if err := f.StartWorkers(context.Background()); err != nil {
		util.Fatal("Failed to start background workers", util.ErrorField(err))
	}

	router := setupRouter(f)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if !cfg.Server.EnableTLS {
		util.Warn("Starting HTTP server - TLS is disabled",
			util.String("environment", cfg.Environment),
			util.Int("port", cfg.Server.Port),
		)
		startServers(f, server)
		return
	}

	tlsManager := f.TLSManager()
	server.Addr = fmt.Sprintf(":%d", cfg.Server.TLSPort)
	server.TLSConfig = tlsManager.GetTLSConfig()

	// Plain port answers ACME challenges and redirects to HTTPS.
	redirect := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           tlsManager.HTTPHandler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	util.Info("Starting HTTPS server",
		util.String("environment", cfg.Environment),
		util.Int("port", cfg.Server.TLSPort),
		util.Bool("auto_cert", cfg.Server.AutoCert),
		util.String("domain", cfg.Server.Domain),
	)
	startServers(f, server, redirect)
}

// setupRouter creates the HTTP router with all handlers using Chi
func setupRouter(f *factory.Factory) http.Handler {
	cfg := f.Config()
	logger := util.Get()
	services := f.ServiceFactory()

	h := handler.Handlers{
		Auth:    handler.NewAuthHandler(services.AuthService(), logger),
		Admin:   handler.NewAdminHandler(services.AuthService(), services.BlogService(), logger),
		Profile: handler.NewProfileHandler(services.ProfileService(), cfg.Server.MaxUploadBytes, logger),
		Blog:    handler.NewBlogHandler(services.BlogService(), cfg.Server.MaxUploadBytes, logger),
		Health:  f,
	}
	if limiter := f.RateLimiter(); limiter != nil {
		h.Limiter = limiter
	}

	return handler.NewRouter(cfg, h, handler.NewGuards(f.Guards(), logger), logger)
}

// startServers serves until a signal arrives. The first server is the API;
// any others are auxiliary.
func startServers(f *factory.Factory, servers ...*http.Server) {
	for _, srv := range servers {
		srv := srv
		go func() {
			var err error
			if srv.TLSConfig != nil {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				util.Fatal("Server failed to start", util.String("address", srv.Addr), util.ErrorField(err))
			}
		}()
	}

	util.Info("Server started successfully",
		util.String("environment", f.Config().Environment),
		util.Bool("tls_enabled", f.Config().Server.EnableTLS),
		util.String("address", servers[0].Addr),
	)

	waitForShutdown(f, servers...)
}

func waitForShutdown(f *factory.Factory, servers ...*http.Server) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-signalChan
	util.Info("Received shutdown signal", util.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			util.Error("Failed to shutdown server gracefully", util.String("address", srv.Addr), util.ErrorField(err))
		}
	}
	util.Info("Servers stopped")
	f.Close()
}
