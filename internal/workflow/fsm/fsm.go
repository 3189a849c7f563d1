// Package fsm 需求单生命周期状态机：固定迁移表，纯函数
package fsm

import (
	"fmt"

	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"github.com/bitfantasy/procurehub/internal/workflow/rbac"
)

// InvalidTransitionError 状态前置条件不满足
type InvalidTransitionError struct {
	Action    rbac.Action
	Current   string
	Attempted string // 目标状态
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: action %q requires another status, request is %q (attempted %q)",
		e.Action, e.Current, e.Attempted)
}

// transition 单条迁移规则
type transition struct {
	from []string
	to   string
}

// 迁移表：
//
//	draft → in_review → approved_for_submission → bidding → bid_evaluation
//	      → recommended → sent_to_po → ordered
//	in_review → rejected；bidding → expired（时间驱动）
//	expired/rejected → draft（reactivate）
var transitions = map[rbac.Action]transition{
	rbac.ActionSubmitForReview: {from: []string{entity.StatusDraft}, to: entity.StatusInReview},
	rbac.ActionRPApprove:       {from: []string{entity.StatusInReview}, to: entity.StatusApprovedForSubmission},
	rbac.ActionRPReject:        {from: []string{entity.StatusInReview}, to: entity.StatusRejected},
	rbac.ActionStartBidding:    {from: []string{entity.StatusApprovedForSubmission}, to: entity.StatusBidding},
	rbac.ActionRecommendOffer:  {from: []string{entity.StatusBidding, entity.StatusBidEvaluation}, to: entity.StatusRecommended},
	rbac.ActionSendToPo:        {from: []string{entity.StatusRecommended}, to: entity.StatusSentToPo},
	rbac.ActionOrder:           {from: []string{entity.StatusSentToPo}, to: entity.StatusOrdered},
	rbac.ActionReactivate:      {from: []string{entity.StatusExpired, entity.StatusRejected}, to: entity.StatusDraft},
}

// Next 返回动作在当前状态下的目标状态；前置不满足返回 InvalidTransitionError
func Next(action rbac.Action, current string) (string, error) {
	t, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("no transition defined for action %q", action)
	}
	for _, from := range t.from {
		if current == from {
			return t.to, nil
		}
	}
	return "", &InvalidTransitionError{Action: action, Current: current, Attempted: t.to}
}

// Target 动作的目标状态（不检查前置），用于幂等重试判断
func Target(action rbac.Action) (string, bool) {
	t, ok := transitions[action]
	return t.to, ok
}

// CanAcceptOffers 当前状态是否接受新报价
func CanAcceptOffers(status string) bool {
	return status == entity.StatusBidding
}

// CanEdit 需求单内容是否可编辑（仅草稿）
func CanEdit(status string) bool {
	return status == entity.StatusDraft
}

// IsTerminal 是否终态（reactivate 除外）
func IsTerminal(status string) bool {
	switch status {
	case entity.StatusOrdered, entity.StatusRejected, entity.StatusExpired:
		return true
	}
	return false
}
