package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/models"
	"github.com/wellsitefocus/rigup_backend/utils"
)

func main() {
	path := flag.String("file", "", "Path to the catalog xlsx sheet to import.")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: catalog-import -file <catalog.xlsx>")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open %s: %v\n", *path, err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := utils.SetUserNameInContext(context.Background(), "CatalogImport")
	summary, err := models.ImportFlangeSpecsFromXlsx(ctx, filepath.Base(*path), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(summary)
}
