package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/models"
	"github.com/wellsitefocus/rigup_backend/utils"
)

func intPtr(v int) *int { return &v }

// Small development catalog: enough rows to exercise every category branch,
// including two rows that stay ambiguous until bolt count is supplied.
func devCatalog() []*models.FlangeSpec {
	return []*models.FlangeSpec{
		{
			NominalSize: "2 1/16", PressureClass: "5M", PressureClassPSI: 5000,
			BoltCount: 8, BoltSize: "3/4", FlangeSize: "2 1/16 5M", RingGasket: "R-24",
			WrenchNumber: 1, TruckPSI: 2500,
			GateValvePSI: intPtr(5000), PlugValvePSI: intPtr(5000),
		},
		{
			NominalSize: "2 1/16", PressureClass: "10M", PressureClassPSI: 10000,
			BoltCount: 8, BoltSize: "7/8", FlangeSize: "2 1/16 10M", RingGasket: "BX-152",
			WrenchNumber: 2, TruckPSI: 3000,
			GateValvePSI: intPtr(10000), CheckValvePSI: intPtr(10000), ChokePSI: intPtr(10000),
		},
		{
			NominalSize: "3 1/8", PressureClass: "5M", PressureClassPSI: 5000,
			BoltCount: 8, BoltSize: "7/8", FlangeSize: "3 1/8 5M", RingGasket: "R-35",
			WrenchNumber: 2, TruckPSI: 2500,
			GateValvePSI: intPtr(5000), PlugValvePSI: intPtr(5000), CheckValvePSI: intPtr(5000),
		},
		{
			NominalSize: "3 1/8", PressureClass: "10M", PressureClassPSI: 10000,
			BoltCount: 12, BoltSize: "7/8", FlangeSize: "3 1/8 10M", RingGasket: "BX-154",
			WrenchNumber: 3, TruckPSI: 3000,
			GateValvePSI: intPtr(10000), ChokePSI: intPtr(10000),
		},
		{
			NominalSize: "4 1/16", PressureClass: "5M", PressureClassPSI: 5000,
			BoltCount: 8, BoltSize: "1 1/8", FlangeSize: "4 1/16 5M", RingGasket: "R-39",
			WrenchNumber: 4, TruckPSI: 2500,
			PlugValvePSI: intPtr(5000),
		},
		{
			NominalSize: "4 1/16", PressureClass: "10M", PressureClassPSI: 10000,
			BoltCount: 16, BoltSize: "1 1/8", FlangeSize: "4 1/16 10M", RingGasket: "BX-155",
			WrenchNumber: 5, TruckPSI: 3000,
		},
	}
}

func devWrenchRefs() []*models.WrenchRef {
	return []*models.WrenchRef{
		{WrenchNumber: 1, ExpectedTruckPSI: 2500},
		{WrenchNumber: 2, ExpectedTruckPSI: 2500},
		{WrenchNumber: 3, ExpectedTruckPSI: 3000},
		{WrenchNumber: 4, ExpectedTruckPSI: 2500},
		{WrenchNumber: 5, ExpectedTruckPSI: 3000},
	}
}

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := utils.SetUserNameInContext(context.Background(), "SeedCatalog")

	created, updated, err := models.BulkUpsertFlangeSpecs(ctx, devCatalog())
	if err != nil {
		fmt.Fprintf(os.Stderr, "seeding catalog failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("catalog: %d created, %d updated\n", created, updated)

	for _, ref := range devWrenchRefs() {
		var existing models.WrenchRef
		lookupErr := db.WithContext(ctx).Where("wrench_number = ?", ref.WrenchNumber).First(&existing).Error
		if lookupErr == nil {
			if err := db.WithContext(ctx).Model(&existing).
				Update("ExpectedTruckPSI", ref.ExpectedTruckPSI).Error; err != nil {
				fmt.Fprintf(os.Stderr, "updating wrench ref %d failed: %v\n", ref.WrenchNumber, err)
				os.Exit(1)
			}
			continue
		}
		if err := db.WithContext(ctx).Create(ref).Error; err != nil {
			fmt.Fprintf(os.Stderr, "creating wrench ref %d failed: %v\n", ref.WrenchNumber, err)
			os.Exit(1)
		}
	}
	if err := models.ClearWrenchRefCache(); err != nil {
		fmt.Fprintf(os.Stderr, "clearing wrench ref cache failed: %v\n", err)
	}
	fmt.Printf("wrench refs: %d rows ensured\n", len(devWrenchRefs()))
}
