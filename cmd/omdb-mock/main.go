// Command omdb-mock serves canned OMDb search and detail responses for local development.
package main

import (
	"flag"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinerate/internal/logging"
	"github.com/Clark-Hu/cinerate/internal/omdb"
)

// catalogue maps imdbID to the detail record served for it.
type catalogue map[string]json.RawMessage

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "mock-omdb.json", "path to mock data file (imdbID -> detail object)")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	logger := logging.New(logging.Config{Format: "console"})

	file, err := os.ReadFile(*data)
	if err != nil {
		logger.Fatal().Err(err).Msg("read mock data")
	}

	var entries catalogue
	if err := json.Unmarshal(file, &entries); err != nil {
		logger.Fatal().Err(err).Msg("parse mock data")
	}

	mux := http.NewServeMux()
	mux.Handle("/", newHandler(entries, logger, *logReqs))

	addr := ":" + *port
	logger.Info().Str("addr", addr).Int("entries", len(entries)).Msg("mock omdb listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func newHandler(entries catalogue, logger zerolog.Logger, logReqs bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if logReqs {
			logger.Info().Str("s", q.Get("s")).Str("i", q.Get("i")).Msg("request")
		}
		if q.Get("apikey") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"Response": "False", "Error": "No API key provided."})
			return
		}

		if id := q.Get("i"); id != "" {
			entry, ok := entries[id]
			if !ok {
				writeJSON(w, http.StatusOK, map[string]string{"Response": "False", "Error": "Incorrect IMDb ID."})
				return
			}
			writeJSON(w, http.StatusOK, entry)
			return
		}

		matches := search(entries, q.Get("s"))
		if len(matches) == 0 {
			writeJSON(w, http.StatusOK, map[string]string{"Response": "False", "Error": "Movie not found!"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"Search":       matches,
			"totalResults": len(matches),
			"Response":     "True",
		})
	})
}

func search(entries catalogue, term string) []omdb.Summary {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	matches := make([]omdb.Summary, 0)
	for id, raw := range entries {
		var s omdb.Summary
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(s.Title), term) {
			s.IMDbID = id
			matches = append(matches, s)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].IMDbID < matches[j].IMDbID })
	return matches
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
