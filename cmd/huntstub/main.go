// huntstub runs the in-memory development backend. It speaks the same
// wire protocol as the production API, resets on restart and seeds two
// well-known accounts so the client can be exercised immediately.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"huntlab.org/internal/session"
	"huntlab.org/internal/stub"
)

var version = "0.3.1"

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	secret := flag.String("secret", "huntstub-dev-secret", "JWT signing secret")
	flag.Parse()

	backend := stub.New(*secret)
	backend.Seed("hunter", "hunter", session.RoleHunter)
	backend.Seed("analyst", "analyst", session.RoleAnalyst)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           backend.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting huntstub %s on %s (accounts: hunter/hunter, analyst/analyst)", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
