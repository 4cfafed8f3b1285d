package main

import (
	"flag"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"moviehub/internal/omdb"
	"moviehub/pkg/utils"
)

// Serves data/omdb.json with OMDB's query surface. Point OMDB_BASE_URL at
// it to run the API offline.
func main() {
	var (
		dataPath = flag.String("data", "data/omdb.json", "records written by export-mirror")
		addr     = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	utils.LoadEnv()
	utils.SetupLogger()

	records, err := omdb.LoadRecords(*dataPath)
	if err != nil {
		log.WithError(err).Fatal("[omdb-mirror] load records failed")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           omdb.NewMirror(records).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.WithFields(log.Fields{"addr": *addr, "records": len(records)}).Info("[omdb-mirror] listening")
	log.Fatal(srv.ListenAndServe())
}
