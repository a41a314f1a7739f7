package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/models"
	"github.com/wellsitefocus/rigup_backend/utils"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := utils.SetUserNameInContext(context.Background(), "WrenchAudit")
	mismatches, err := models.AuditWrenchRefs(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
		os.Exit(1)
	}

	if len(mismatches) == 0 {
		fmt.Println("no wrench/truck PSI mismatches found")
		return
	}
	for _, m := range mismatches {
		fmt.Printf("spec %d (%s): wrench %d has truck PSI %d, reference expects %d\n",
			m.SpecId, m.FlangeSize, m.WrenchNumber, m.TruckPSI, m.ExpectedTruckPSI)
	}
	os.Exit(2)
}
