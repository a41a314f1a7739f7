package models

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/utils"
	"github.com/xuri/excelize/v2"
)

// specRowInput is one raw sheet row mapped by position:
// 0 NominalSize, 1 PressureClass, 2 PressureClassPSI, 3 BoltCount,
// 4 BoltSize, 5 FlangeSize, 6 RingGasket, 7 WrenchNumber, 8 TruckPSI,
// 9-12 the four category working-pressure columns.
type specRowInput struct {
	cells []string
}

func (r specRowInput) text(col int) string {
	if col >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[col])
}

func (r specRowInput) intCell(col int) (int, error) {
	raw := r.text(col)
	if raw == "" {
		return 0, fmt.Errorf("required numeric cell %d is empty", col+1)
	}
	value, err := utils.ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	return int(value.IntPart()), nil
}

func (r specRowInput) optionalIntCell(col int) (*int, error) {
	raw := r.text(col)
	if raw == "" {
		return nil, nil
	}
	value, err := utils.ParseDecimal(raw)
	if err != nil {
		return nil, err
	}
	parsed := int(value.IntPart())
	return &parsed, nil
}

// normalizeSpecRow maps one sheet row to a catalog record. Text labels are
// whitespace-collapsed and uppercased so re-ingested sheets hit the same
// natural key; formatted numbers ("5,000") parse through the decimal helper.
func normalizeSpecRow(row []string) (*FlangeSpec, error) {
	input := specRowInput{cells: row}

	spec := FlangeSpec{
		NominalSize:   utils.NormalizeLabel(input.text(0)),
		PressureClass: utils.NormalizeLabel(input.text(1)),
		BoltSize:      utils.NormalizeLabel(input.text(4)),
		FlangeSize:    utils.NormalizeLabel(input.text(5)),
		RingGasket:    utils.NormalizeLabel(input.text(6)),
	}
	if spec.NominalSize == "" || spec.PressureClass == "" || spec.BoltSize == "" {
		return nil, fmt.Errorf("natural key columns must not be empty")
	}

	var err error
	if spec.PressureClassPSI, err = input.intCell(2); err != nil {
		return nil, fmt.Errorf("pressure class psi: %w", err)
	}
	if spec.BoltCount, err = input.intCell(3); err != nil {
		return nil, fmt.Errorf("bolt count: %w", err)
	}
	if spec.BoltCount <= 0 {
		return nil, fmt.Errorf("bolt count must be positive, got %d", spec.BoltCount)
	}
	if spec.WrenchNumber, err = input.intCell(7); err != nil {
		return nil, fmt.Errorf("wrench number: %w", err)
	}
	if spec.TruckPSI, err = input.intCell(8); err != nil {
		return nil, fmt.Errorf("truck psi: %w", err)
	}

	if spec.GateValvePSI, err = input.optionalIntCell(9); err != nil {
		return nil, fmt.Errorf("gate valve psi: %w", err)
	}
	if spec.PlugValvePSI, err = input.optionalIntCell(10); err != nil {
		return nil, fmt.Errorf("plug valve psi: %w", err)
	}
	if spec.CheckValvePSI, err = input.optionalIntCell(11); err != nil {
		return nil, fmt.Errorf("check valve psi: %w", err)
	}
	if spec.ChokePSI, err = input.optionalIntCell(12); err != nil {
		return nil, fmt.Errorf("choke psi: %w", err)
	}

	return &spec, nil
}

// ImportFlangeSpecsFromXlsx bulk-loads the catalog from an xlsx sheet:
// archive the raw upload, normalize every data row, upsert by natural key in
// one transaction, then announce the refresh. The pubsub announcement is
// best-effort and never fails the import.
func ImportFlangeSpecsFromXlsx(ctx context.Context, filename string, file io.Reader) (string, error) {
	if !strings.HasSuffix(filename, ".xlsx") {
		return "", fmt.Errorf("invalid file type: only .xlsx files are allowed")
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("could not read upload: %v", err)
	}

	objectKey := fmt.Sprintf("importSpecs/%s_%s", utils.GenerateUniqueFilename(), filename)
	if err := utils.UploadFileToGCS(ctx, objectKey, bytes.NewReader(content)); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "importSpecs.go", "ImportFlangeSpecsFromXlsx", "archive upload failed", filename, err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("unable to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return "", fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) < 2 {
		return "", fmt.Errorf("sheet has no data rows")
	}

	specs := make([]*FlangeSpec, 0, len(rows)-1)
	for idx, row := range rows[1:] {
		spec, err := normalizeSpecRow(row)
		if err != nil {
			return "", fmt.Errorf("row %d: %v", idx+2, err)
		}
		specs = append(specs, spec)
	}

	created, updated, err := BulkUpsertFlangeSpecs(ctx, specs)
	if err != nil {
		return "", err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if correlationId == "" {
		correlationId = uuid.NewString()
	}
	_, err = config.PublishCatalogEvent(ctx, config.CatalogEvent{
		Action:        "upserted",
		RecordCount:   len(specs),
		SourceFile:    objectKey,
		OccurredAt:    time.Now(),
		CorrelationId: correlationId,
	})
	if err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "importSpecs.go", "ImportFlangeSpecsFromXlsx", "catalog event publish failed", objectKey, err)
	}

	actor, _ := utils.GetUserNameFromContext(ctx)
	config.GetLogger().WithField("actor", actor).
		Infof("catalog import %s: %d rows, %d created, %d updated", objectKey, len(specs), created, updated)

	return fmt.Sprintf("imported %d rows: %d created, %d updated", len(specs), created, updated), nil
}
