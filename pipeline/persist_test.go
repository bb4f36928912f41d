package pipeline

import (
	"testing"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/segment"
)

func mkLine(id string, mode segment.Mode, role segment.Role) Line {
	return Line{ID: id, TimeCardID: "tc-1", Mode: mode, Role: role}
}

func TestReconcileIDsReusesPerBucket(t *testing.T) {
	// GIVEN persisted lines in two buckets and a rerun producing more
	// billable lines than before
	existing := []Line{
		mkLine("e-1", segment.ModeBill, segment.RoleBillable),
		mkLine("e-2", segment.ModeBill, segment.RoleBillable),
		mkLine("e-3", segment.ModeBill, segment.RoleUnworked),
	}
	produced := []Line{
		mkLine("f-1", segment.ModeBill, segment.RoleBillable),
		mkLine("f-2", segment.ModeBill, segment.RoleBillable),
		mkLine("f-3", segment.ModeBill, segment.RoleBillable),
		mkLine("f-4", segment.ModeBill, segment.RoleUnworked),
		mkLine("f-5", segment.ModePay, segment.RolePayable),
	}

	// WHEN reconciling
	out := reconcileIDs(existing, produced)

	// THEN stored ids are reused in order within each (mode, role) bucket,
	// and produced lines beyond the stored count keep their fresh ids
	wantIDs := []string{"e-1", "e-2", "f-3", "e-3", "f-5"}
	if len(out) != len(wantIDs) {
		t.Fatalf("reconciled %d lines, want %d", len(out), len(wantIDs))
	}
	for i, w := range wantIDs {
		if out[i].ID != w {
			t.Errorf("line %d id = %q, want %q", i, out[i].ID, w)
		}
	}
}

func TestReconcileIDsBucketsNeverCross(t *testing.T) {
	// A payable id must never be assigned to a billable line.
	existing := []Line{mkLine("e-pay", segment.ModePay, segment.RolePayable)}
	produced := []Line{mkLine("f-bill", segment.ModeBill, segment.RoleBillable)}

	out := reconcileIDs(existing, produced)
	if out[0].ID != "f-bill" {
		t.Fatalf("id = %q, want the fresh billable id", out[0].ID)
	}
}

func TestReconcileIDsDoesNotMutateInput(t *testing.T) {
	existing := []Line{mkLine("e-1", segment.ModeBill, segment.RoleBillable)}
	produced := []Line{mkLine("f-1", segment.ModeBill, segment.RoleBillable)}

	_ = reconcileIDs(existing, produced)
	if produced[0].ID != "f-1" {
		t.Fatal("reconcileIDs must not mutate the produced slice")
	}
}

func TestBuildLinesWalksBothSequences(t *testing.T) {
	ex := newExec(minCallContract(), contract.NewRuleSet(),
		billable(tod(9, 0), tod(10, 0)))
	if err := (minimumCallStage{}).Run(ex); err != nil {
		t.Fatal(err)
	}

	lines := buildLines(ex)
	if len(lines) != 2 {
		t.Fatalf("built %d lines, want worked + unworked", len(lines))
	}
	if lines[0].Role != segment.RoleBillable || lines[1].Role != segment.RoleUnworked {
		t.Fatalf("roles = %s, %s", lines[0].Role, lines[1].Role)
	}
	wantHours(t, "shortfall line", lines[1].Hours[ColumnStandard], "3")
}
