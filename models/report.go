package models

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/utils"
)

// ReportDocument is a derived, read-only projection of one stack: the
// formatted lines plus summary metadata. Regenerated per request, never
// stored as mutable state.
type ReportDocument struct {
	StackId         int       `json:"stack_id"`
	Title           string    `json:"title"`
	Lines           []string  `json:"lines"`
	TotalParts      int       `json:"total_parts"`
	TargetRange     string    `json:"target_range"`
	PressureClasses string    `json:"pressure_classes"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// BuildStackReport reads the stack and formats it. The read path already
// surfaces a missing spec row as a data-integrity fault, so formatting itself
// never has to handle a nil spec.
func BuildStackReport(ctx context.Context, stackId int) (*ReportDocument, error) {
	stack, err := GetStack(ctx, stackId)
	if err != nil {
		return nil, err
	}
	report := formatStackReport(stack)
	return report, nil
}

// formatStackReport partitions the members into singles (original stack
// order) and composite groups (first-encountered order, sides by creation
// time), emits singles first and then the group line-pairs, and computes the
// summary block.
func formatStackReport(stack *Stack) *ReportDocument {
	var singles []StackMember
	groupOrder := make([]string, 0)
	groups := make(map[string][]StackMember)

	for _, member := range stack.Members {
		if member.GroupId != nil {
			gid := *member.GroupId
			if _, seen := groups[gid]; !seen {
				groupOrder = append(groupOrder, gid)
			}
			groups[gid] = append(groups[gid], member)
			continue
		}
		singles = append(singles, member)
	}

	lines := make([]string, 0, len(stack.Members))
	for _, member := range singles {
		lines = append(lines, formatMemberLine(member, ""))
	}
	for i, gid := range groupOrder {
		sides := groups[gid]
		sort.SliceStable(sides, func(a, b int) bool {
			if !sides[a].CreatedAt.Equal(sides[b].CreatedAt) {
				return sides[a].CreatedAt.Before(sides[b].CreatedAt)
			}
			return sides[a].Position < sides[b].Position
		})
		letter := groupLetter(i)
		for sideIdx, member := range sides {
			prefix := fmt.Sprintf("Composite Unit %s — Side %d – ", letter, sideIdx+1)
			lines = append(lines, formatMemberLine(member, prefix))
		}
	}

	return &ReportDocument{
		StackId:         stack.ID,
		Title:           stack.Title,
		Lines:           lines,
		TotalParts:      len(stack.Members),
		TargetRange:     summarizeTargets(stack.Members),
		PressureClasses: summarizePressureClasses(stack.Members),
		GeneratedAt:     time.Now(),
	}
}

// formatMemberLine emits one report line. The target segment appears if and
// only if the category is attribute-driven; a stray stored value on any other
// category is never printed.
func formatMemberLine(member StackMember, prefix string) string {
	spec := member.FlangeSpec

	label := member.Category.Label()
	if prefix != "" {
		label = prefix + label
	}

	target := ""
	if member.Category.RequiresTarget() && member.TargetPSI != nil {
		target = fmt.Sprintf(" – Target %d", *member.TargetPSI)
	}

	return fmt.Sprintf("%s%s – Ring: %s | Size of Bolts: %s | # Bolts: %d | Flange: %s | Wrench Required: %d | Set Truck PSI to: %d",
		label, target, spec.RingGasket, spec.BoltSize, spec.BoltCount, spec.FlangeSize, spec.WrenchNumber, spec.TruckPSI)
}

// groupLetter assigns A..Z, then AA, AB, ... for the rare stack with more
// than 26 composite groups.
func groupLetter(index int) string {
	letter := ""
	index++
	for index > 0 {
		index--
		letter = string(rune('A'+index%26)) + letter
		index /= 26
	}
	return letter
}

func summarizeTargets(members []StackMember) string {
	var targets []int
	for _, member := range members {
		if member.TargetPSI != nil {
			targets = append(targets, *member.TargetPSI)
		}
	}
	if len(targets) == 0 {
		return "N/A"
	}
	sort.Ints(targets)
	min, max := targets[0], targets[len(targets)-1]
	if min == max {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("%d - %d", min, max)
}

func summarizePressureClasses(members []StackMember) string {
	classes := make([]string, 0, len(members))
	for _, member := range members {
		if member.FlangeSpec != nil && member.FlangeSpec.PressureClass != "" {
			classes = append(classes, member.FlangeSpec.PressureClass)
		}
	}
	classes = utils.UniqueSlice(classes)
	if len(classes) == 0 {
		return "N/A"
	}
	sort.Strings(classes)
	return strings.Join(classes, ", ")
}

// ReportRenderer turns a formatted report into document bytes. The plain-text
// renderer is the default; the xlsx exporter satisfies the same seam.
type ReportRenderer func(report *ReportDocument) ([]byte, string, error)

// RenderPlainText renders the lines and summary as a UTF-8 text document.
func RenderPlainText(report *ReportDocument) ([]byte, string, error) {
	var b strings.Builder
	b.WriteString(report.Title + "\n")
	b.WriteString(strings.Repeat("=", len(report.Title)) + "\n\n")
	for _, line := range report.Lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Total Parts: %d\n", report.TotalParts))
	b.WriteString(fmt.Sprintf("Target Range: %s\n", report.TargetRange))
	b.WriteString(fmt.Sprintf("Pressure Classes: %s\n", report.PressureClasses))
	return []byte(b.String()), "txt", nil
}

// ReportFile records one rendered report stored in GCS.
type ReportFile struct {
	ID          int       `gorm:"primary_key" json:"id"`
	StackId     int       `gorm:"index;not null" json:"stack_id"`
	ObjectKey   string    `gorm:"size:512;not null" json:"object_key"`
	AccessURL   string    `gorm:"size:1024" json:"access_url"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RenderAndStoreReport builds the report, renders it through the supplied
// renderer, uploads the bytes and records the stored object.
func RenderAndStoreReport(ctx context.Context, stackId int, render ReportRenderer) (*ReportFile, error) {
	report, err := BuildStackReport(ctx, stackId)
	if err != nil {
		return nil, err
	}
	content, extension, err := render(report)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("reports/stack_%d/%s_report.%s", stackId, utils.GenerateUniqueFilename(), extension)
	contentType := "text/plain"
	if extension == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err := utils.UploadBytesToGCS(ctx, objectKey, content, contentType); err != nil {
		return nil, err
	}

	file := ReportFile{
		StackId:     stackId,
		ObjectKey:   objectKey,
		AccessURL:   utils.BuildObjectAccessURL(objectKey),
		ContentType: contentType,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}
