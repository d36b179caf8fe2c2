package models

import "time"

// SponsorTier is the sponsorship package applied for.
type SponsorTier string

const (
	SponsorTierBronze   SponsorTier = "BRONZE"
	SponsorTierSilver   SponsorTier = "SILVER"
	SponsorTierGold     SponsorTier = "GOLD"
	SponsorTierPlatinum SponsorTier = "PLATINUM"
)

// SponsorStatus tracks review of a sponsorship application.
type SponsorStatus string

const (
	SponsorStatusPending  SponsorStatus = "PENDING"
	SponsorStatusApproved SponsorStatus = "APPROVED"
	SponsorStatusRejected SponsorStatus = "REJECTED"
)

// Valid returns true when the status is supported.
func (s SponsorStatus) Valid() bool {
	switch s {
	case SponsorStatusPending, SponsorStatusApproved, SponsorStatusRejected:
		return true
	default:
		return false
	}
}

// Sponsor is a company applying to sponsor the academy.
type Sponsor struct {
	ID          string        `db:"id" json:"id"`
	CompanyName string        `db:"company_name" json:"companyName"`
	ContactName string        `db:"contact_name" json:"contactName"`
	Email       string        `db:"email" json:"email"`
	Phone       *string       `db:"phone" json:"phone,omitempty"`
	Website     *string       `db:"website" json:"website,omitempty"`
	Tier        SponsorTier   `db:"tier" json:"tier"`
	Message     string        `db:"message" json:"message"`
	Status      SponsorStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// SponsorFilter scopes sponsor listings.
type SponsorFilter struct {
	Status   SponsorStatus
	Page     int
	PageSize int
}
