package domain

import "time"

// ApprovalAction represents the decision recorded for a pending document
type ApprovalAction string

const (
	ApprovalActionApprove ApprovalAction = "APPROVE"
	ApprovalActionReject  ApprovalAction = "REJECT"
)

// DocumentApproval is an immutable audit record of an approve/reject
// decision. It is never updated or deleted.
type DocumentApproval struct {
	ID         string
	DocumentID string
	UserID     string
	Action     ApprovalAction
	Reason     string
	CreatedAt  time.Time
}
