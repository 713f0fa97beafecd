// autopkg-probe shows what autopkg would pick for a GitHub repository without
// downloading or installing anything.
package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/gobuffalo/envy"
	"github.com/rodaine/table"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/autopkg/autopkg/fetcher"
	"github.com/autopkg/autopkg/fetcher/github"
	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/models"
	"github.com/autopkg/autopkg/version"
)

func main() {
	var verbose bool
	var repo string
	var pattern string
	var current string

	app := cli.NewApp()
	app.Name = "autopkg-probe"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "repo, r",
			Usage:       "GitHub repository as owner/name",
			Destination: &repo,
			Required:    true,
		}, cli.StringFlag{
			Name:        "pattern, p",
			Usage:       "Glob selecting the release asset",
			Value:       "*",
			Destination: &pattern,
		}, cli.StringFlag{
			Name:        "current",
			Usage:       "Installed version to compare against",
			Value:       "0.0.0",
			Destination: &current,
		}, cli.BoolFlag{
			Name:        "verbose",
			Usage:       "Full debug log",
			Destination: &verbose,
		},
	}

	app.Action = func(c *cli.Context) error {
		ctx := context.Background()

		if verbose {
			log.G(ctx).Logger.SetLevel(logrus.DebugLevel)
		}

		g, err := github.New(models.FetcherSpec{Type: github.Kind, Repo: repo, FilePattern: pattern}, fetcher.Options{
			Token:     envy.Get("GITHUB_TOKEN", ""),
			UserAgent: "autopkg-probe/" + app.Version,
		})
		if err != nil {
			return err
		}

		release, err := g.LatestRelease(ctx)
		if err != nil {
			return err
		}
		remote := version.Normalize(release.TagName)
		asset, found := g.SelectAsset(release)
		if !found {
			log.G(ctx).Warnf("No asset of %s matches %q", repo, pattern)
		}

		headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
		columnFmt := color.New(color.FgYellow).SprintfFunc()

		tbl := table.New("Repo", "Tag", "Version", "Newer than "+current, "Asset")
		tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
		tbl.AddRow(repo, release.TagName, remote, version.IsNewer(current, remote), asset.Name)
		tbl.Print()

		for _, a := range release.Assets {
			log.G(ctx).Debugf(" - asset: %s (%s)", a.Name, a.DownloadURL)
		}
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.L.Fatal(err)
	}
}
