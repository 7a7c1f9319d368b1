package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/siherrmann/scenegraph"
	"github.com/siherrmann/scenegraph/core/pipeline"
	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

// Usage: advanced <dir>
//
// Every <stream>.ndjson, <stream>.json or <stream>.ndjson.zst file in dir is
// ingested as the standard stream of that name. The graph is persisted into a
// throwaway Postgres container and queried from memory and from the database.
func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <dir>", os.Args[0])
	}

	streams, closeAll, err := openStreams(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to open streams: %v", err)
	}
	defer closeAll()

	config := model.DefaultEngineConfig()
	config.RepairJSON = true

	g, err := scenegraph.New(filepath.Base(os.Args[1]), config)
	if err != nil {
		log.Fatalf("Failed to create scene graph: %v", err)
	}
	defer g.Close()

	report, err := g.IngestStreams(context.Background(), pipeline.SortStreams(streams))
	if err != nil {
		log.Fatalf("Failed to ingest streams: %v", err)
	}

	fmt.Println("=== Ingestion ===")
	fmt.Printf("processed %d, skipped %d, objects %d, properties %d in %s\n",
		report.Processed, report.Skipped, report.Objects, report.Properties, report.Duration)
	for kind, count := range report.Reasons {
		fmt.Printf("  %s: %d\n", kind, count)
	}

	// People and what happens to them
	fmt.Println("\n=== People ===")
	people, err := g.Engine.Select(model.QueryConfig{
		EntityTypes: []model.EntityType{model.EntityTypeObject},
		Classes:     []model.Class{"person"},
		Limit:       5,
	})
	if err != nil {
		log.Fatalf("Failed to select people: %v", err)
	}
	for _, person := range people {
		timeline, err := g.Engine.Timeline(person.ID, config.Domain)
		if err != nil {
			log.Fatalf("Failed to get timeline: %v", err)
		}
		fmt.Printf("%s %q (%v): %d timed properties\n", person.ID, person.Label(), person.InputIDs, len(timeline))

		neighbors, err := g.Engine.Neighbors(context.Background(), person.ID, model.QueryConfig{FollowBidirectional: true})
		if err != nil {
			log.Fatalf("Failed to get neighbors: %v", err)
		}
		for _, neighbor := range neighbors {
			fmt.Printf("  -> %s %s %q\n", neighbor.ID, neighbor.Class, neighbor.Label())
		}
	}

	// First minute of the video
	inRange, err := g.Engine.EntitiesInTimeRange(config.Domain, nil, 0, 60)
	if err != nil {
		log.Fatalf("Failed to query time range: %v", err)
	}
	fmt.Printf("\n%d entities in the first minute\n", len(inRange))

	// Persist into a throwaway database
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	g.BoxIndex, err = model.BoxIndexConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to read box index configuration: %v", err)
	}

	err = g.Attach(helper.NewDatabase("scenegraph", dbConfig, nil), false)
	if err != nil {
		log.Fatalf("Failed to attach database: %v", err)
	}
	err = g.Persist(context.Background())
	if err != nil {
		log.Fatalf("Failed to persist session: %v", err)
	}

	fmt.Println("\n=== Nearest boxes ===")
	boxes, err := g.Engine.Select(model.QueryConfig{Classes: []model.Class{model.ClassVideoBox}, Limit: 1})
	if err != nil {
		log.Fatalf("Failed to select boxes: %v", err)
	}
	if len(boxes) > 0 {
		matches, err := g.EntitiesDB.SelectNearestBoxes(g.SessionID(), *boxes[0].Value.Coordinates, 5)
		if err != nil {
			log.Fatalf("Failed to query nearest boxes: %v", err)
		}
		for _, match := range matches {
			fmt.Printf("%s %v distance %.2f\n", match.Entity.ID, *match.Entity.Value.Coordinates, match.Distance)
		}
	}
}

func openStreams(dir string) ([]pipeline.Stream, func(), error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	var streams []pipeline.Stream
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, _, _ := strings.Cut(entry.Name(), ".")

		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		streams = append(streams, pipeline.NewStream(name, f))
	}

	return streams, closeAll, nil
}
