package main

import (
	"context"
	"fmt"
	"log"

	"github.com/markethub/geocurrency/internal/agreements"
	"github.com/markethub/geocurrency/internal/config"
)

// This tool bulk-loads agreement records from a CSV export into MySQL
// Usage: go run cmd/load-agreements/main.go
func main() {
	fmt.Println("Loading agreement records into MySQL...")

	appConfig := config.Load()
	if appConfig.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN must be set")
	}

	csvStore, err := agreements.NewCSVStore(appConfig.AgreementsPath)
	if err != nil {
		log.Fatalf("Failed to read agreements CSV: %v", err)
	}

	mysqlStore, err := agreements.NewMySQLStore(appConfig.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer mysqlStore.Close()

	ctx := context.Background()
	count := 0
	for _, rec := range csvStore.All() {
		if err := mysqlStore.Save(ctx, rec); err != nil {
			log.Fatalf("Failed to save agreement %s: %v", rec.ID, err)
		}
		count++
	}

	fmt.Printf("Loaded %d agreement records\n", count)
}
