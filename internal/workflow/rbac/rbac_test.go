package rbac

import (
	"errors"
	"testing"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
)

func TestAllowedRoleMatrix(t *testing.T) {
	cases := []struct {
		role   string
		action Action
		want   bool
	}{
		{entity.RoleProjectManager, ActionCreateRequest, true},
		{entity.RoleProjectManager, ActionSubmitForReview, true},
		{entity.RoleProjectManager, ActionStartBidding, true},
		{entity.RoleProjectManager, ActionSendToPo, true},
		{entity.RoleProjectManager, ActionReactivate, true},
		{entity.RoleProjectManager, ActionRPApprove, false},
		{entity.RoleProjectManager, ActionSubmitOffer, false},
		{entity.RoleProjectManager, ActionOrder, false},

		{entity.RoleResourcePlanner, ActionRPApprove, true},
		{entity.RoleResourcePlanner, ActionRPReject, true},
		{entity.RoleResourcePlanner, ActionSaveEvaluation, true},
		{entity.RoleResourcePlanner, ActionRecommendOffer, true},
		{entity.RoleResourcePlanner, ActionCreateRequest, false},
		{entity.RoleResourcePlanner, ActionOrder, false},

		{entity.RoleProcurementOfficer, ActionOrder, true},
		{entity.RoleProcurementOfficer, ActionRPApprove, false},
		{entity.RoleProcurementOfficer, ActionSubmitOffer, false},

		{entity.RoleServiceProvider, ActionSubmitOffer, true},
		{entity.RoleServiceProvider, ActionCreateRequest, false},
		{entity.RoleServiceProvider, ActionViewEvaluation, false},

		// system_admin 仅在显式放行的动作上通过
		{entity.RoleSystemAdmin, ActionViewEvaluation, true},
		{entity.RoleSystemAdmin, ActionCreateRequest, false},
		{entity.RoleSystemAdmin, ActionOrder, false},
	}

	for _, tc := range cases {
		if got := Allowed(tc.role, tc.action); got != tc.want {
			t.Fatalf("Allowed(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestCheckOwnership(t *testing.T) {
	// 所有者通过
	if err := Check(entity.RoleProjectManager, ActionSubmitForReview, "pm-alice", "pm-alice"); err != nil {
		t.Fatalf("owner check failed: %v", err)
	}
	// 非所有者PM被拒
	err := Check(entity.RoleProjectManager, ActionSubmitForReview, "pm-bob", "pm-alice")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	// RP动作不要求所有权
	if err := Check(entity.RoleResourcePlanner, ActionRPApprove, "rp-carol", "pm-alice"); err != nil {
		t.Fatalf("planner check failed: %v", err)
	}
}

func TestCheckWrongRole(t *testing.T) {
	err := Check(entity.RoleServiceProvider, ActionRPApprove, "sp-dave", "pm-alice")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCheckUnknownAction(t *testing.T) {
	err := Check(entity.RoleProjectManager, Action("bogus"), "pm-alice", "pm-alice")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unknown action, got %v", err)
	}
}

func TestRequiresOwnership(t *testing.T) {
	owned := []Action{ActionEditRequest, ActionSubmitForReview, ActionStartBidding, ActionSendToPo, ActionReactivate}
	for _, action := range owned {
		if !RequiresOwnership(action) {
			t.Fatalf("%s must require ownership", action)
		}
	}
	if RequiresOwnership(ActionRPApprove) {
		t.Fatal("rp_approve must not require ownership")
	}
	if RequiresOwnership(ActionSubmitOffer) {
		t.Fatal("submit_offer must not require ownership")
	}
}
