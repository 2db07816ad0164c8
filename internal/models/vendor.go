package models

import "time"

// VendorStatus - статус поставщика.
type VendorStatus string

const (
	ActiveVendor      VendorStatus = "active"
	InactiveVendor    VendorStatus = "inactive"
	BlacklistedVendor VendorStatus = "blacklisted"
)

// Valid сообщает, является ли статус известным.
func (s VendorStatus) Valid() bool {
	switch s {
	case ActiveVendor, InactiveVendor, BlacklistedVendor:
		return true
	}
	return false
}

// Vendor представляет модель поставщика.
type Vendor struct {
	ID            string       `json:"id"`
	CompanyName   string       `json:"companyName"`
	ContactPerson string       `json:"contactPerson"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone"`
	Address       string       `json:"address"`
	TaxID         string       `json:"taxId"`
	Rating        *float64     `json:"rating,omitempty"`
	Status        VendorStatus `json:"status"`
	CreatedBy     string       `json:"createdBy"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// VendorRequest представляет структуру запроса для создания или обновления поставщика.
type VendorRequest struct {
	CompanyName   *string       `json:"companyName"`
	ContactPerson *string       `json:"contactPerson"`
	Email         *string       `json:"email"`
	Phone         *string       `json:"phone"`
	Address       *string       `json:"address"`
	TaxID         *string       `json:"taxId"`
	Rating        *float64      `json:"rating"`
	Status        *VendorStatus `json:"status"`
}

// VendorFilter - параметры выборки поставщиков.
type VendorFilter struct {
	Status      []VendorStatus
	CompanyName string
	Page        Page
}

// VendorPerformance - статистика предложений поставщика.
type VendorPerformance struct {
	VendorID  string            `json:"vendorId"`
	TotalBids int               `json:"totalBids"`
	ByStatus  map[BidStatus]int `json:"byStatus"`
	AwardRate float64           `json:"awardRate"`
}
