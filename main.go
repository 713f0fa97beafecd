package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gobuffalo/envy"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/autopkg/autopkg/config"
	"github.com/autopkg/autopkg/fetcher"
	_ "github.com/autopkg/autopkg/fetcher/github"
	"github.com/autopkg/autopkg/history"
	"github.com/autopkg/autopkg/installer"
	_ "github.com/autopkg/autopkg/installer/deb"
	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/printer"
	"github.com/autopkg/autopkg/runner"
	"github.com/autopkg/autopkg/selfinstall"
)

// Version is stamped at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

func main() {
	var logLevel string

	app := cli.NewApp()
	app.Name = "autopkg"
	app.Usage = "Keep applications installed from upstream releases up to date"
	app.Version = Version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (error, warn, info, debug, trace)",
			Value:       envy.Get("AUTOPKG_LOG_LEVEL", "info"),
			Destination: &logLevel,
		},
	}
	app.Before = func(c *cli.Context) error {
		return log.SetLevel(logLevel)
	}

	app.Commands = []cli.Command{
		runCommand(),
		showConfigCommand(),
		historyCommand(),
		cleanCommand(),
		selfInstallCommand(),
	}

	err := app.Run(os.Args)
	if err != nil {
		log.L.Fatal(err)
	}
}

func configFlag(dest *string) cli.Flag {
	return cli.StringFlag{
		Name:        "config, c",
		Usage:       "Path to the config file",
		Value:       envy.Get("AUTOPKG_CONFIG", config.DefaultPath),
		Destination: dest,
	}
}

func historyFlag(dest *string) cli.Flag {
	return cli.StringFlag{
		Name:        "history",
		Usage:       "SQLite database recording every processed application",
		Value:       envy.Get("AUTOPKG_HISTORY", ""),
		Destination: dest,
	}
}

func downloadDirFlag(dest *string) cli.Flag {
	return cli.StringFlag{
		Name:        "download-dir",
		Usage:       "Directory for downloaded artifacts",
		Value:       os.TempDir(),
		Destination: dest,
	}
}

func runCommand() cli.Command {
	var configPath, only, historyPath, downloadDir string
	var dryRun bool

	return cli.Command{
		Name:  "run",
		Usage: "Check every configured application and install available updates",
		Flags: []cli.Flag{
			configFlag(&configPath),
			cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Download updates but do not install them",
				Destination: &dryRun,
			},
			cli.StringFlag{
				Name:        "only",
				Usage:       "Process only the named application",
				Destination: &only,
			},
			historyFlag(&historyPath),
			downloadDirFlag(&downloadDir),
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()

			store := config.NewStore(configPath)
			log.G(ctx).Infof("Loading config from %s", configPath)
			cfg, err := store.Load()
			if err != nil {
				return err
			}

			r := &runner.Runner{
				DryRun: dryRun,
				Fetchers: fetcher.Options{
					Token:       envy.Get("GITHUB_TOKEN", ""),
					UserAgent:   "autopkg/" + Version,
					DownloadDir: downloadDir,
				},
				System: installer.RealSystem{},
			}
			if historyPath != "" {
				h, err := history.Open(historyPath)
				if err != nil {
					log.G(ctx).Warnf("Continuing without history: %v", err)
				} else {
					defer h.Close()
					r.Recorder = h
				}
			}
			if dryRun {
				log.G(ctx).Warn("Dry-run mode: updates will be downloaded but not installed")
			}

			results, err := r.RunBatch(ctx, cfg, only, store)
			printer.Table(os.Stdout, results)
			return err
		},
	}
}

func showConfigCommand() cli.Command {
	var configPath string

	return cli.Command{
		Name:  "show-config",
		Usage: "Print the configuration in canonical form",
		Flags: []cli.Flag{configFlag(&configPath)},
		Action: func(c *cli.Context) error {
			cfg, err := config.NewStore(configPath).Load()
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}

func historyCommand() cli.Command {
	var historyPath string
	var limit int

	return cli.Command{
		Name:  "history",
		Usage: "Show recently processed applications",
		Flags: []cli.Flag{
			historyFlag(&historyPath),
			cli.IntFlag{
				Name:        "limit, n",
				Usage:       "Number of entries to show",
				Value:       20,
				Destination: &limit,
			},
		},
		Action: func(c *cli.Context) error {
			if historyPath == "" {
				return errors.New("no history database given, use --history or AUTOPKG_HISTORY")
			}
			h, err := history.Open(historyPath)
			if err != nil {
				return err
			}
			defer h.Close()

			entries, err := h.Recent(context.Background(), limit)
			if err != nil {
				return err
			}
			printer.History(os.Stdout, entries)
			return nil
		},
	}
}

func cleanCommand() cli.Command {
	var downloadDir string

	return cli.Command{
		Name:  "clean",
		Usage: "Remove cached downloads",
		Flags: []cli.Flag{downloadDirFlag(&downloadDir)},
		Action: func(c *cli.Context) error {
			removed, err := fetcher.CleanDownloads(downloadDir)
			for _, path := range removed {
				log.L.Debugf(" - deleted: %s", path)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d cached download(s) from %s\n", len(removed), downloadDir)
			return nil
		},
	}
}

func selfInstallCommand() cli.Command {
	var installDir, configPath string

	return cli.Command{
		Name:  "self-install",
		Usage: "Install the autopkg binary, a default config and systemd units",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:        "install-dir",
				Usage:       "Install directory for the binary",
				Value:       selfinstall.DefaultInstallDir,
				Destination: &installDir,
			},
			cli.StringFlag{
				Name:        "config-path",
				Usage:       "Config file path",
				Value:       selfinstall.DefaultConfigPath,
				Destination: &configPath,
			},
		},
		Action: func(c *cli.Context) error {
			return selfinstall.Run(context.Background(), selfinstall.Options{
				InstallDir: installDir,
				ConfigPath: configPath,
			})
		},
	}
}
