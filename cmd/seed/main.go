// Command main runs the database seeder for PawHaven.
package main

import (
	"flag"
	"log"

	"pawhaven/internal/config"
	"pawhaven/internal/database"
	"pawhaven/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numListings := flag.Int("listings", 60, "Number of listings to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a YAML preset file instead of random data")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *preset != "" {
		log.Printf("Applying preset: %s", *preset)
		if err := s.ApplyPresetFile(*preset); err != nil {
			log.Fatalf("Preset seeding failed: %v", err)
		}
	} else {
		if err := s.Seed(*numUsers, *numListings); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Println("All done! Your database is now populated with test data.")
	log.Println("All generated users have the password: password123")
}
