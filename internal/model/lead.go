package model

import "time"

type LeadStatus string

const (
	LeadStatusLead     LeadStatus = "LEAD"
	LeadStatusCaring   LeadStatus = "CARING"
	LeadStatusCustomer LeadStatus = "CUSTOMER"
	LeadStatusClosed   LeadStatus = "CLOSED"
)

// Lead is the sweeper's read-only view of a CRM lead. LastActivityAt is
// advanced only by activity-recording actions elsewhere in the CRM, never by
// the sweep.
type Lead struct {
	ID             int64
	FullName       string
	Status         LeadStatus
	LastActivityAt *time.Time
	AssignedTo     *int64
	OwnerID        *int64
}

// Recipient resolves who should be alerted about this lead: the assignee if
// present, else the owner. ok is false when neither exists.
func (l *Lead) Recipient() (userID int64, ok bool) {
	if l.AssignedTo != nil {
		return *l.AssignedTo, true
	}
	if l.OwnerID != nil {
		return *l.OwnerID, true
	}
	return 0, false
}
