package models

import "time"

// TenderStatus - статус тендера.
type TenderStatus string

const (
	DraftTender     TenderStatus = "draft"     // Тендер создан
	PublishedTender TenderStatus = "published" // Тендер опубликован
	BiddingTender   TenderStatus = "bidding"   // Идет прием предложений
	ClosedTender    TenderStatus = "closed"    // Прием предложений закрыт
	AwardedTender   TenderStatus = "awarded"   // Победитель выбран
	CancelledTender TenderStatus = "cancelled" // Тендер отменен
)

// Tender представляет модель тендера.
type Tender struct {
	ID             string       `json:"id"`
	TenderNumber   string       `json:"tenderNumber"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Budget         *float64     `json:"budget,omitempty"`
	Status         TenderStatus `json:"status"`
	StartDate      *time.Time   `json:"startDate,omitempty"`
	EndDate        *time.Time   `json:"endDate,omitempty"`
	BidOpeningDate *time.Time   `json:"bidOpeningDate,omitempty"`
	CreatedBy      string       `json:"createdBy"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// TenderRequest представляет структуру запроса для создания или обновления тендера.
type TenderRequest struct {
	TenderNumber   *string    `json:"tenderNumber"`
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Budget         *float64   `json:"budget"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	BidOpeningDate *time.Time `json:"bidOpeningDate"`
}

// TenderFilter - параметры выборки тендеров.
type TenderFilter struct {
	Status      []TenderStatus
	StartsAfter *time.Time
	EndsBefore  *time.Time
	Page        Page
}

// TenderDetails - тендер вместе с количеством предложений.
type TenderDetails struct {
	*Tender
	BidCount int `json:"bidCount"`
}
