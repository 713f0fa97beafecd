package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/autopkg/autopkg/log"
	"github.com/autopkg/autopkg/models"
)

// downloadPrefix marks every file autopkg writes into the download directory.
const downloadPrefix = "autopkg-"

// CachePath returns the deterministic download location for an asset, so
// repeated runs overwrite the same file instead of accumulating copies.
func CachePath(dir, source, assetName string) string {
	name := fmt.Sprintf("%s%s-%s", downloadPrefix, sanitize(source), sanitize(assetName))
	return filepath.Join(dir, name)
}

func sanitize(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}

// DownloadFile streams url into path. A non-success status is a transport
// error.
func DownloadFile(ctx context.Context, client *http.Client, userAgent, url, path string) error {
	log.G(ctx).Debugf("Downloading: %s to %s", url, path)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return models.NewError(models.KindTransport, errors.Wrapf(err, "invalid download url %s", url))
	}
	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return models.NewError(models.KindTransport, errors.Wrapf(err, "failed to download %s", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.NewError(models.KindTransport, errors.Errorf("failed to download asset from %s: status %s", url, resp.Status))
	}

	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return models.NewError(models.KindTransport, errors.Wrapf(err, "failed to download %s", url))
	}

	log.G(ctx).Infof("Downloaded %s to %s", humanize.Bytes(uint64(n)), path)
	return nil
}

// CleanDownloads removes cached downloads from dir and returns their paths.
func CleanDownloads(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, downloadPrefix+"*"))
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, file := range matches {
		log.L.Debugf(" - deleting: %s", file)
		if err := os.RemoveAll(file); err != nil {
			return removed, errors.Wrapf(err, "failed to delete %s", file)
		}
		removed = append(removed, file)
	}
	return removed, nil
}
