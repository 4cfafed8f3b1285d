package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"moviehub/internal/cache"
	"moviehub/internal/movies"
	"moviehub/internal/omdb"
	"moviehub/internal/stores"
	"moviehub/pkg/utils"
)

type result struct {
	Imported, Duplicates, Missing, Rejected, Failed int
}

// Seeds the catalog from OMDB. Each input line is an IMDb id (tt...) or an
// exact title; blank lines and #comments are skipped.
func main() {
	in := flag.String("in", "data/seed.txt", "file with one IMDb id or title per line")
	flag.Parse()

	utils.LoadEnv()
	utils.SetupLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := stores.Open(ctx, utils.LoadStoreConfig())
	if err != nil {
		log.WithError(err).Fatal("[omdb-import] open store failed")
	}
	defer st.Close()

	cfg := utils.LoadLookupConfig()
	lookup := omdb.NewLookup(
		omdb.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		cache.NewMemory(cfg.Capacity, cfg.CacheTTL),
		cfg.CacheTTL,
	)

	f, err := os.Open(*in)
	if err != nil {
		log.WithError(err).Fatal("[omdb-import] open input failed")
	}
	defer f.Close()

	res, err := seed(ctx, lookup, st.Movies, f)
	if err != nil {
		log.WithError(err).Fatal("[omdb-import] seed failed")
	}
	log.WithFields(log.Fields{
		"imported":   res.Imported,
		"duplicates": res.Duplicates,
		"missing":    res.Missing,
		"rejected":   res.Rejected,
		"failed":     res.Failed,
	}).Info("[omdb-import] done")
}

// seed imports every entry of src. One bad entry does not stop the run.
func seed(ctx context.Context, lookup *omdb.Lookup, catalog omdb.Catalog, src io.Reader) (result, error) {
	var res result

	sc := bufio.NewScanner(src)
	for sc.Scan() {
		entry := strings.TrimSpace(sc.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}

		imdbID, title := "", entry
		if isImdbID(entry) {
			imdbID, title = entry, ""
		}

		m, err := omdb.Import(ctx, lookup, catalog, imdbID, title)
		switch {
		case err == nil:
			log.WithFields(log.Fields{"imdb_id": m.ImdbID, "title": m.Title}).Info("[omdb-import] imported")
			res.Imported++
		case errors.Is(err, movies.ErrDuplicateImdbID):
			res.Duplicates++
		case errors.Is(err, omdb.ErrNoResults):
			log.WithField("entry", entry).Warn("[omdb-import] not found")
			res.Missing++
		case errors.Is(err, omdb.ErrIncompleteRecord):
			log.WithError(err).WithField("entry", entry).Warn("[omdb-import] rejected")
			res.Rejected++
		default:
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.WithError(err).WithField("entry", entry).Error("[omdb-import] import failed")
			res.Failed++
		}
	}
	return res, sc.Err()
}

func isImdbID(s string) bool {
	if len(s) < 3 || !strings.HasPrefix(s, "tt") {
		return false
	}
	for _, r := range s[2:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
