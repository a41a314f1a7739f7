package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/utils"
	"gorm.io/gorm"
)

// FlangeSpec is one row of the reference flange specification catalog.
//
// The 4-tuple (nominal size, pressure class, bolt count, bolt size) is the
// natural key; storage enforces it. Rows are created in bulk by the xlsx
// ingestion and are immutable afterwards except for re-ingestion upserts.
type FlangeSpec struct {
	ID               int    `gorm:"primary_key" json:"id"`
	NominalSize      string `gorm:"size:50;not null;uniqueIndex:idx_flange_specs_natural_key,priority:1" json:"nominal_size" binding:"required"`
	PressureClass    string `gorm:"size:20;not null;uniqueIndex:idx_flange_specs_natural_key,priority:2" json:"pressure_class" binding:"required"`
	BoltCount        int    `gorm:"not null;uniqueIndex:idx_flange_specs_natural_key,priority:3" json:"bolt_count" binding:"required"`
	BoltSize         string `gorm:"size:50;not null;uniqueIndex:idx_flange_specs_natural_key,priority:4" json:"bolt_size" binding:"required"`
	PressureClassPSI int    `gorm:"not null" json:"pressure_class_psi"`
	FlangeSize       string `gorm:"size:100;not null" json:"flange_size"`
	RingGasket       string `gorm:"size:50" json:"ring_gasket"`
	WrenchNumber     int    `json:"wrench_number"`
	TruckPSI         int    `json:"truck_psi"`

	// Working pressures per attribute-driven category. Null means the
	// category is not applicable to this row via a pressure constraint.
	GateValvePSI  *int `json:"gate_valve_psi"`
	PlugValvePSI  *int `json:"plug_valve_psi"`
	CheckValvePSI *int `json:"check_valve_psi"`
	ChokePSI      *int `json:"choke_psi"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WrenchRef maps a wrench number to the truck PSI setting the tooling sheet
// expects for it. Used only for advisory cross-checks.
type WrenchRef struct {
	ID               int       `gorm:"primary_key" json:"id"`
	WrenchNumber     int       `gorm:"not null;uniqueIndex" json:"wrench_number" binding:"required"`
	ExpectedTruckPSI int       `gorm:"not null" json:"expected_truck_psi" binding:"required"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ListFlangeSpecs reads the full catalog, redis or db, caching the result.
// The catalog is small and read-only from the selection paths' perspective.
func ListFlangeSpecs(ctx context.Context) ([]*FlangeSpec, error) {
	specs, err := utils.RetrieveRedisList[FlangeSpec]()
	if err != nil {
		return nil, err
	}
	if specs == nil {
		specs, err = utils.FetchAllModels[FlangeSpec](ctx)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[FlangeSpec](specs); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func GetFlangeSpec(ctx context.Context, id int) (*FlangeSpec, error) {
	return utils.FetchModel[FlangeSpec](ctx, id)
}

// ClearFlangeSpecCache drops the cached catalog list. Called after ingestion.
func ClearFlangeSpecCache() error {
	return utils.RemoveRedisList[FlangeSpec]()
}

// ClearWrenchRefCache drops the cached wrench reference list.
func ClearWrenchRefCache() error {
	return utils.RemoveRedisList[WrenchRef]()
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// naturalKeyWhere scopes a query to one catalog row by natural key.
func naturalKeyWhere(tx *gorm.DB, spec *FlangeSpec) *gorm.DB {
	return tx.Where("nominal_size = ? AND pressure_class = ? AND bolt_count = ? AND bolt_size = ?",
		spec.NominalSize, spec.PressureClass, spec.BoltCount, spec.BoltSize)
}

// BulkUpsertFlangeSpecs writes candidate catalog rows keyed by natural key:
// existing rows are updated in place, new rows created, all in one
// transaction. Rows are trusted as already normalized by the ingestion path.
func BulkUpsertFlangeSpecs(ctx context.Context, specs []*FlangeSpec) (created int, updated int, err error) {
	db := config.GetDB()

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, spec := range specs {
			var existing FlangeSpec
			lookupErr := naturalKeyWhere(tx, spec).First(&existing).Error
			switch {
			case lookupErr == nil:
				spec.ID = existing.ID
				spec.CreatedAt = existing.CreatedAt
				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"PressureClassPSI": spec.PressureClassPSI,
					"FlangeSize":       spec.FlangeSize,
					"RingGasket":       spec.RingGasket,
					"WrenchNumber":     spec.WrenchNumber,
					"TruckPSI":         spec.TruckPSI,
					"GateValvePSI":     spec.GateValvePSI,
					"PlugValvePSI":     spec.PlugValvePSI,
					"CheckValvePSI":    spec.CheckValvePSI,
					"ChokePSI":         spec.ChokePSI,
				}).Error; err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				updated++
			case lookupErr == gorm.ErrRecordNotFound:
				if err := tx.Create(spec).Error; err != nil {
					// A concurrent import may have inserted the same natural
					// key between the lookup and the create.
					if isDuplicateKeyErr(err) {
						return fmt.Errorf("row %d: natural key inserted concurrently, retry the import: %w", i+1, err)
					}
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				created++
			default:
				return fmt.Errorf("row %d: %w", i+1, lookupErr)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	if cacheErr := ClearFlangeSpecCache(); cacheErr != nil {
		config.LogError(config.GetLogger(), "flangeSpec.go", "BulkUpsertFlangeSpecs", "clear catalog cache", nil, cacheErr)
	}
	return created, updated, nil
}

// ListWrenchRefs reads the wrench reference table, redis or db.
func ListWrenchRefs(ctx context.Context) ([]*WrenchRef, error) {
	refs, err := utils.RetrieveRedisList[WrenchRef]()
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs, err = utils.FetchAllModels[WrenchRef](ctx)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[WrenchRef](refs); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// WrenchMismatch describes one catalog row whose truck PSI disagrees with the
// wrench reference table.
type WrenchMismatch struct {
	SpecId           int    `json:"spec_id"`
	FlangeSize       string `json:"flange_size"`
	WrenchNumber     int    `json:"wrench_number"`
	TruckPSI         int    `json:"truck_psi"`
	ExpectedTruckPSI int    `json:"expected_truck_psi"`
}

// crossCheckWrench compares one row against the reference map. The mismatch,
// if any, is advisory: it is reported, never used to filter.
func crossCheckWrench(spec *FlangeSpec, expected map[int]int) *WrenchMismatch {
	if spec.WrenchNumber == 0 {
		return nil
	}
	want, ok := expected[spec.WrenchNumber]
	if !ok || want == spec.TruckPSI {
		return nil
	}
	return &WrenchMismatch{
		SpecId:           spec.ID,
		FlangeSize:       spec.FlangeSize,
		WrenchNumber:     spec.WrenchNumber,
		TruckPSI:         spec.TruckPSI,
		ExpectedTruckPSI: want,
	}
}

func wrenchExpectationMap(refs []*WrenchRef) map[int]int {
	expected := make(map[int]int, len(refs))
	for _, ref := range refs {
		expected[ref.WrenchNumber] = ref.ExpectedTruckPSI
	}
	return expected
}

// AuditWrenchRefs scans the whole catalog for wrench/truck-PSI disagreements.
func AuditWrenchRefs(ctx context.Context) ([]*WrenchMismatch, error) {
	specs, err := ListFlangeSpecs(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := ListWrenchRefs(ctx)
	if err != nil {
		return nil, err
	}
	expected := wrenchExpectationMap(refs)

	var mismatches []*WrenchMismatch
	for _, spec := range specs {
		if m := crossCheckWrench(spec, expected); m != nil {
			mismatches = append(mismatches, m)
		}
	}
	return mismatches, nil
}
