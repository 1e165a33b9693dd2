// Command seed loads a YAML grid document and upserts the workout template
// grid. The server never writes templates; this is the only writer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"peakform/training-app/internal/config"
	"peakform/training-app/internal/repository/mongo"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	gridPath := flag.String("file", "", "path to the YAML grid document (required)")
	dryRun := flag.Bool("dry-run", false, "validate and report counts without writing to the database")
	flag.Parse()

	if *gridPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: seed -file grid.yaml [-config .] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(*gridPath)
	if err != nil {
		log.Fatalf("FATAL: Could not read grid file: %v", err)
	}
	doc, err := parseGrid(data)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	templates, err := buildTemplates(doc)
	if err != nil {
		log.Fatalf("FATAL: Invalid grid: %v", err)
	}
	counts := countTemplates(templates)
	log.Printf("Parsed %d categories: %d templates (%d rest days), %d exercises.",
		len(doc.Categories), counts.Templates, counts.RestDays, counts.Exercises)

	if *dryRun {
		log.Println("Dry run: no writes performed.")
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// The unique slot index must exist before upserting keys on it.
	mongo.EnsureTemplateIndexes(ctx, appDB.Collection("workout_templates"))

	templateRepo := mongo.NewMongoTemplateRepository(appDB)
	upserted := 0
	for i := range templates {
		if _, err := templateRepo.Upsert(ctx, &templates[i]); err != nil {
			log.Fatalf("FATAL: Upsert failed for %q (week %d day %d): %v",
				templates[i].Name, templates[i].Week, templates[i].Day, err)
		}
		upserted++
	}
	log.Printf("Seed complete: %d templates upserted.", upserted)
}
