package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"cypher_arena/internal/db"
	"cypher_arena/internal/migrations"
)

func main() {
	apply := flag.Bool("apply", false, "apply pending migrations")
	flag.Parse()

	if !*apply {
		names, err := migrations.Names()
		if err != nil {
			log.Fatal(err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool)
	for _, name := range applied {
		fmt.Printf("applied %s\n", name)
	}
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if len(applied) == 0 {
		fmt.Println("schema up to date")
	}
}
