package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getlantern/systray"

	"github.com/ibeckermayer/xdash/internal/app"
	"github.com/ibeckermayer/xdash/internal/config"
	"github.com/ibeckermayer/xdash/internal/tray"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.LoadOrCreate()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	log.Println("xdash starting...")
	if err := a.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	log.Printf("Dashboard at %s", a.URL())

	if cfg.Server.OpenBrowser {
		if err := a.OpenDashboard(); err != nil {
			log.Printf("Warning: could not open browser: %v", err)
		}
	}

	if cfg.Tray.Enabled {
		// Run systray (blocks until Quit)
		systray.Run(tray.OnReady(a), tray.OnExit(a))
		return
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}
