package models

import "time"

// BidStatus - статус предложения.
type BidStatus string

const (
	SubmittedBid   BidStatus = "submitted"    // Предложение подано
	UnderReviewBid BidStatus = "under_review" // Предложение на рассмотрении
	ShortlistedBid BidStatus = "shortlisted"  // Предложение в коротком списке
	RejectedBid    BidStatus = "rejected"     // Предложение отклонено
	AwardedBid     BidStatus = "awarded"      // Предложение победило
)

// Terminal сообщает, является ли статус конечным.
func (s BidStatus) Terminal() bool {
	return s == RejectedBid || s == AwardedBid
}

// Bid представляет модель предложения.
type Bid struct {
	ID             string     `json:"id"`
	TenderID       string     `json:"tenderId"`
	VendorID       string     `json:"vendorId"`
	Proposal       string     `json:"proposal"`
	BidAmount      *float64   `json:"bidAmount,omitempty"`
	ValidityDays   *int       `json:"validityDays,omitempty"`
	Status         BidStatus  `json:"status"`
	ReviewComments string     `json:"reviewComments,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// BidRequest представляет структуру запроса для создания или обновления предложения.
type BidRequest struct {
	TenderID     string   `json:"tenderId"`
	VendorID     string   `json:"vendorId"`
	Proposal     *string  `json:"proposal"`
	BidAmount    *float64 `json:"bidAmount"`
	ValidityDays *int     `json:"validityDays"`
}

// BidReview представляет решение сотрудника по предложению.
type BidReview struct {
	Status   BidStatus `json:"status"`
	Comments string    `json:"comments"`
}

// BidFilter - параметры выборки предложений.
type BidFilter struct {
	Status   []BidStatus
	TenderID string
	VendorID string
	Page     Page
}
