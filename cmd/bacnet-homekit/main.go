package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/elhernes/bachome"

	"github.com/brutella/hap"
	"github.com/brutella/hap/log"

	"github.com/urfave/cli/v2"
)

func main() {
	var dir, file string
	var debug bool

	app := cli.App{
		Name:  "bacnet homekit bridge",
		Usage: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Value:       "/var/db/bachome",
				Usage:       "configuration directory",
				Destination: &dir,
			},
			&cli.StringFlag{
				Name:        "config",
				Value:       "bachome.json",
				Usage:       "configuration file",
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Value:       false,
				Usage:       "enable debug",
				Destination: &debug,
			},
		},
		Action: func(c *cli.Context) error {
			if debug {
				log.Debug.Enable()
			}

			fulldir, err := filepath.Abs(dir)
			if err != nil {
				log.Info.Panic("unable to get config directory", dir)
			}
			conf, err := bachome.LoadConfig(filepath.Join(fulldir, file))
			if err != nil {
				log.Info.Panic(err.Error())
			}

			// shared state first, then zones
			if err := bachome.Startup(conf, fulldir); err != nil {
				log.Info.Panic(err.Error())
			}

			bridge := bachome.Bridge(conf.Name)
			devices := bachome.Devices()

			s, err := hap.NewServer(hap.NewFsStore(fulldir), bridge, devices...)
			if err != nil {
				log.Info.Panic(err)
			}
			s.Pin = conf.Pin

			ctx, cancel := context.WithCancel(context.Background())

			// keep homekit current even when nobody is asking
			go bachome.Poller(ctx, conf.PollRate)

			// serve HomeKit
			go func(ctx context.Context) {
				s.ListenAndServe(ctx)
			}(ctx)

			// wait for signal to shut down
			sigch := make(chan os.Signal, 3)
			signal.Notify(sigch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

			sig := <-sigch

			log.Info.Printf("shutdown requested by signal: %s", sig)
			cancel()
			bachome.Shutdown(fulldir)

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Info.Panic(err)
	}
}
