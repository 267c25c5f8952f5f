package models

import (
	dErrors "unearthify/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusDeleted  Status = "deleted"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusDeleted:
		return true
	}
	return false
}

// Moderation tracks review state. PreviousStatus is only set while the
// record is soft-deleted so Recover can put it back where it was.
type Moderation struct {
	Status         Status `json:"status"`
	PreviousStatus Status `json:"previous_status,omitempty"`
}

func (m *Moderation) Mod() *Moderation { return m }

func (m *Moderation) Approve() error {
	switch m.Status {
	case StatusApproved:
		return dErrors.New(dErrors.CodeInvariantViolation, "record is already approved")
	case StatusDeleted:
		return dErrors.New(dErrors.CodeInvariantViolation, "recover the record before approving it")
	}
	m.Status = StatusApproved
	return nil
}

func (m *Moderation) Reject() error {
	switch m.Status {
	case StatusRejected:
		return dErrors.New(dErrors.CodeInvariantViolation, "record is already rejected")
	case StatusDeleted:
		return dErrors.New(dErrors.CodeInvariantViolation, "recover the record before rejecting it")
	}
	m.Status = StatusRejected
	return nil
}

func (m *Moderation) SoftDelete() error {
	if m.Status == StatusDeleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "record is already deleted")
	}
	m.PreviousStatus = m.Status
	m.Status = StatusDeleted
	return nil
}

// Recover restores a soft-deleted record to the status it had before. Records
// deleted before statuses were tracked come back as pending.
func (m *Moderation) Recover() error {
	if m.Status != StatusDeleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "only deleted records can be recovered")
	}
	m.Status = m.PreviousStatus
	if !m.Status.IsValid() || m.Status == StatusDeleted {
		m.Status = StatusPending
	}
	m.PreviousStatus = ""
	return nil
}

// CanPurge reports whether the record may be removed for good.
func (m *Moderation) CanPurge() error {
	if m.Status != StatusDeleted && m.Status != StatusRejected {
		return dErrors.New(dErrors.CodeInvariantViolation, "only deleted or rejected records can be permanently deleted")
	}
	return nil
}
