// Package main runs the world to base node with its HTTP bridge.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roboticeyes/worldtobase/bus"
	"github.com/roboticeyes/worldtobase/event"
	"github.com/roboticeyes/worldtobase/node"
	"github.com/roboticeyes/worldtobase/params"
	"github.com/roboticeyes/worldtobase/server"
	"github.com/urfave/cli/v2"
)

const (
	flagParams        = "params"
	flagListen        = "listen"
	flagDebug         = "debug"
	flagJSONLogs      = "json-logs"
	flagJWTKey        = "jwt-key"
	flagWatchInterval = "watch-interval"
)

var log = event.Log

func main() {
	app := &cli.App{
		Name:  "worldtobase",
		Usage: "express motion capture rigid bodies in the robot base frame",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagParams,
				Aliases: []string{"p"},
				Usage:   "load node parameters from JSON `FILE`; defaults are used when empty",
			},
			&cli.StringFlag{
				Name:  flagListen,
				Value: ":8080",
				Usage: "address of the HTTP bridge",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging, including every computed transform",
			},
			&cli.BoolFlag{
				Name:  flagJSONLogs,
				Usage: "log JSON lines instead of text",
			},
			&cli.StringFlag{
				Name:    flagJWTKey,
				EnvVars: []string{"WORLDTOBASE_JWT_KEY"},
				Usage:   "require bearer tokens signed with this HS256 key on the bridge",
			},
			&cli.DurationFlag{
				Name:  flagWatchInterval,
				Value: time.Second,
				Usage: "polling interval for parameters file changes",
			},
		},
		Before: func(c *cli.Context) error {
			event.ConfigureLogging(c.Bool(flagDebug), c.Bool(flagJSONLogs))
			if !c.Bool(flagDebug) {
				gin.SetMode(gin.ReleaseMode)
			}
			return nil
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openStore(c *cli.Context) (params.Store, func(), error) {
	path := c.String(flagParams)
	if path == "" {
		log.Info("No parameters file given, using defaults")
		return params.Static(params.Defaults()), func() {}, nil
	}
	store, err := params.NewFileStore(path)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Watch(c.Duration(flagWatchInterval)); err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func run(c *cli.Context) error {
	store, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	b := bus.New()
	defer b.Close()

	n, err := node.NewWorldToBase(store, b)
	if err != nil {
		return err
	}
	defer n.Close()

	srv := &http.Server{
		Addr:    c.String(flagListen),
		Handler: server.New(server.Config{SigningKey: []byte(c.String(flagJWTKey))}, b, store).Handler(),
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.WithFields(event.Fields{"addr": srv.Addr}).Info("Starting HTTP bridge")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
