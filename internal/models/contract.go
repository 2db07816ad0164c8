package models

import (
	"encoding/json"
	"time"
)

type (
	ContractStatus string // Статус контракта
	ContractType   string // Тип контракта
)

const (
	DraftContract           ContractStatus = "draft"
	PendingApprovalContract ContractStatus = "pending_approval"
	ApprovedContract        ContractStatus = "approved"
	ActiveContract          ContractStatus = "active"
	ExpiredContract         ContractStatus = "expired"
	TerminatedContract      ContractStatus = "terminated"

	ServiceContract      ContractType = "service"
	ProductContract      ContractType = "product"
	ConstructionContract ContractType = "construction"
	ConsultingContract   ContractType = "consulting"
	OtherContract        ContractType = "other"

	DefaultCurrency = "USD"
)

// Valid сообщает, является ли тип контракта известным.
func (t ContractType) Valid() bool {
	switch t {
	case ServiceContract, ProductContract, ConstructionContract, ConsultingContract, OtherContract:
		return true
	}
	return false
}

// Contract представляет модель контракта.
type Contract struct {
	ID             string          `json:"id"`
	ContractNumber string          `json:"contractNumber"`
	Title          string          `json:"title"`
	Type           ContractType    `json:"type"`
	Status         ContractStatus  `json:"status"`
	Parties        json.RawMessage `json:"parties"`
	StartDate      *time.Time      `json:"startDate,omitempty"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	Value          *float64        `json:"value,omitempty"`
	Currency       string          `json:"currency"`
	Terms          string          `json:"terms"`
	CreatedBy      string          `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ContractRequest представляет структуру запроса для создания или обновления контракта.
type ContractRequest struct {
	ContractNumber *string          `json:"contractNumber"`
	Title          *string          `json:"title"`
	Type           *ContractType    `json:"type"`
	Status         *ContractStatus  `json:"status"`
	Parties        *json.RawMessage `json:"parties"`
	StartDate      *time.Time       `json:"startDate"`
	EndDate        *time.Time       `json:"endDate"`
	Value          *float64         `json:"value"`
	Currency       *string          `json:"currency"`
	Terms          *string          `json:"terms"`
}

// ContractFilter - параметры выборки контрактов.
type ContractFilter struct {
	Status []ContractStatus
	Type   []ContractType
	// EndsBefore отбирает контракты с датой окончания не позже указанной.
	EndsBefore *time.Time
	Page       Page
}

// ContractStats - сводная статистика по контрактам.
type ContractStats struct {
	Total           int                    `json:"total"`
	Active          int                    `json:"active"`
	PendingApproval int                    `json:"pendingApproval"`
	ByStatus        map[ContractStatus]int `json:"byStatus"`
	ByType          map[ContractType]int   `json:"byType"`
	TotalValue      float64                `json:"totalValue"`
}

// ContractHistory - контракт вместе с его маршрутами согласования.
type ContractHistory struct {
	Contract  *Contract         `json:"contract"`
	Workflows []WorkflowDetails `json:"workflows"`
}
