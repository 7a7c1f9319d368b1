package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/siherrmann/scenegraph"
	"github.com/siherrmann/scenegraph/model"
)

// Reads annotation records as NDJSON from stdin and writes the resulting
// entities as NDJSON to stdout. Progress goes to stderr.
func main() {
	config, err := model.EngineConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	g, err := scenegraph.New("stdin", config)
	if err != nil {
		log.Fatalf("Failed to create scene graph: %v", err)
	}

	_, err = g.IngestReader(context.Background(), "stdin", os.Stdin)
	if err != nil {
		log.Fatalf("Failed to ingest records: %v", err)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if err := g.WriteNDJSON(out, false); err != nil {
		log.Fatalf("Failed to write entities: %v", err)
	}
}
