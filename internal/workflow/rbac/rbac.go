// Package rbac 角色与动作权限模型：纯函数，(role, action, ownership) → allow/deny
package rbac

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
)

// Action 工作流动作
type Action string

const (
	ActionCreateRequest   Action = "create_request"
	ActionEditRequest     Action = "edit_request"
	ActionSubmitForReview Action = "submit_for_review"
	ActionRPApprove       Action = "rp_approve"
	ActionRPReject        Action = "rp_reject"
	ActionStartBidding    Action = "submit_for_bidding"
	ActionSubmitOffer     Action = "submit_offer"
	ActionSaveEvaluation  Action = "save_evaluation"
	ActionViewEvaluation  Action = "view_evaluation"
	ActionRecommendOffer  Action = "rp_recommend_offer"
	ActionSendToPo        Action = "send_to_po"
	ActionOrder           Action = "order"
	ActionReactivate      Action = "reactivate"
)

// ErrForbidden 角色或所有权校验失败
var ErrForbidden = errors.New("forbidden")

// rule 动作的权限规则
type rule struct {
	roles          []string
	ownerOnly      bool // 需要 actor 为需求单创建人
	allowSysAdmin  bool // system_admin 仅在显式列出的读/评估类动作上放行
}

// 权限表。system_admin 不隐式获得 PM/RP/PO 的写动作，
// 只在 allowSysAdmin 显式标记处放行。
var rules = map[Action]rule{
	ActionCreateRequest:   {roles: []string{entity.RoleProjectManager}},
	ActionEditRequest:     {roles: []string{entity.RoleProjectManager}, ownerOnly: true},
	ActionSubmitForReview: {roles: []string{entity.RoleProjectManager}, ownerOnly: true},
	ActionRPApprove:       {roles: []string{entity.RoleResourcePlanner}},
	ActionRPReject:        {roles: []string{entity.RoleResourcePlanner}},
	ActionStartBidding:    {roles: []string{entity.RoleProjectManager}, ownerOnly: true},
	ActionSubmitOffer:     {roles: []string{entity.RoleServiceProvider}},
	ActionSaveEvaluation:  {roles: []string{entity.RoleResourcePlanner}},
	ActionViewEvaluation:  {roles: []string{entity.RoleResourcePlanner}, allowSysAdmin: true},
	ActionRecommendOffer:  {roles: []string{entity.RoleResourcePlanner}},
	ActionSendToPo:        {roles: []string{entity.RoleProjectManager}, ownerOnly: true},
	ActionOrder:           {roles: []string{entity.RoleProcurementOfficer}},
	ActionReactivate:      {roles: []string{entity.RoleProjectManager}, ownerOnly: true},
}

// Allowed 角色是否可执行动作（不含所有权判断）
func Allowed(role string, action Action) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	if r.allowSysAdmin && role == entity.RoleSystemAdmin {
		return true
	}
	for _, allowed := range r.roles {
		if role == allowed {
			return true
		}
	}
	return false
}

// RequiresOwnership 动作是否要求 actor 为需求单所有者
func RequiresOwnership(action Action) bool {
	return rules[action].ownerOnly
}

// Check 完整权限校验；拒绝时返回带规则说明的 ErrForbidden
func Check(role string, action Action, actorUsername, ownerUsername string) error {
	r, ok := rules[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrForbidden, action)
	}
	if !Allowed(role, action) {
		return fmt.Errorf("%w: action %q requires role %v, got %q", ErrForbidden, action, r.roles, role)
	}
	if r.ownerOnly && actorUsername != ownerUsername {
		return fmt.Errorf("%w: action %q is restricted to the request owner %q", ErrForbidden, action, ownerUsername)
	}
	return nil
}
