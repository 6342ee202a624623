package main

import (
	_ "embed"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
)

//go:embed fixtures.json
var defaultFixtures []byte

type notFound struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "", "path to a fixture file keyed by title (defaults to the built-in set)")
		apiKey  = flag.String("apikey", "", "reject requests whose apikey differs (empty accepts any)")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	file := defaultFixtures
	if *data != "" {
		var err error
		if file, err = os.ReadFile(*data); err != nil {
			log.Fatalf("read mock data: %v", err)
		}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(file, &payload); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		title := query.Get("t")
		if *verbose {
			log.Printf("lookup title=%q", title)
		}
		w.Header().Set("Content-Type", "application/json")
		if *apiKey != "" && query.Get("apikey") != *apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(notFound{Response: "False", Error: "Invalid API key!"})
			return
		}
		entry, ok := payload[title]
		if !ok {
			_ = json.NewEncoder(w).Encode(notFound{Response: "False", Error: "Movie not found!"})
			return
		}
		_, _ = w.Write(entry)
	})

	addr := ":" + *port
	log.Printf("mock omdb listening on %s (%d titles)", addr, len(payload))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
