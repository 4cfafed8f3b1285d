package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"moviehub/internal/movies"
	"moviehub/internal/omdb"
	"moviehub/internal/stores"
	"moviehub/pkg/utils"
)

func main() {
	var (
		outPath = flag.String("out", "data/omdb.json", "output JSON path")
		limit   = flag.Int("limit", 200, "how many movies to export")
	)
	flag.Parse()

	utils.LoadEnv()
	utils.SetupLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := stores.Open(ctx, utils.LoadStoreConfig())
	if err != nil {
		log.WithError(err).Fatal("[export-mirror] open store failed")
	}
	defer st.Close()

	var out []omdb.Record
	for page := 1; len(out) < *limit; page++ {
		items, total, err := st.Movies.List(ctx, movies.ListQuery{Page: page, Limit: 100})
		if err != nil {
			log.WithError(err).Fatal("[export-mirror] list movies failed")
		}
		for _, m := range items {
			// the mirror is addressed by IMDb id
			if m.ImdbID == "" || len(out) >= *limit {
				continue
			}
			out = append(out, omdb.RecordFromMovie(m))
		}
		if len(items) == 0 || page*100 >= total {
			break
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.WithError(err).Fatal("[export-mirror] marshal failed")
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.WithError(err).Fatal("[export-mirror] mkdir failed")
	}
	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		log.WithError(err).Fatal("[export-mirror] write failed")
	}

	log.WithFields(log.Fields{"file": *outPath, "records": len(out)}).Info("[export-mirror] done")
}
