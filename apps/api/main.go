package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	_ "net/http/pprof"

	echoapi "github.com/shikshahub/portal/apps/api/echo"
	"github.com/shikshahub/portal/core"
	"github.com/shikshahub/portal/core/content"
	"github.com/shikshahub/portal/core/session"
	logsvc "github.com/shikshahub/portal/services/logger"
	inmemcreds "github.com/shikshahub/portal/storage/credential/inmem"
	inmemprofile "github.com/shikshahub/portal/storage/profile/inmem"
	sqlxprofile "github.com/shikshahub/portal/storage/profile/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	creds := inmemcreds.New([]byte(conf.SecretKey))

	var profiles core.ProfileStore
	if conf.ProfileStoreDSN != "" {
		store, err := sqlxprofile.Open(conf.ProfileStoreDSN)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up profile store: %v", err), err)
		}
		defer func() {
			if err = store.Close(); err != nil {
				logger.Error("failed to close profile store", err)
			}
		}()
		profiles = store
	} else {
		profiles = inmemprofile.New()
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	sessions := session.NewManager(creds, profiles, logger)
	sessions.Initialize()
	defer sessions.Close()

	synchronizer := content.NewSynchronizer(
		content.Config{AppID: conf.AppID, InitialAuthToken: conf.InitialAuthToken},
		creds, profiles, logger,
	)
	synchronizer.Start()
	defer synchronizer.Close()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:     conf,
			Logger:   logger,
			Sessions: sessions,
			Content:  synchronizer,
			Creds:    creds,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
