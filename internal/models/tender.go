package models

import "time"

type (
	TenderServiceType string // Тип услуги для тендера
	TenderStatus      string // Статус тендера
)

const (
	Construction TenderServiceType = "Construction"
	Delivery     TenderServiceType = "Delivery"
	Manufacture  TenderServiceType = "Manufacture"

	CreatedTender   TenderStatus = "Created"   // Тендер создан
	PublishedTender TenderStatus = "Published" // Тендер опубликован
	ClosedTender    TenderStatus = "Closed"    // Тендер закрыт
)

// Valid проверяет, что тип услуги входит в закрытый набор значений.
func (t TenderServiceType) Valid() bool {
	switch t {
	case Construction, Delivery, Manufacture:
		return true
	}
	return false
}

// Valid проверяет, что статус тендера входит в закрытый набор значений.
func (s TenderStatus) Valid() bool {
	switch s {
	case CreatedTender, PublishedTender, ClosedTender:
		return true
	}
	return false
}

// Tender представляет модель тендера.
type Tender struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Status          TenderStatus      `json:"status"`
	ServiceType     TenderServiceType `json:"serviceType"`
	OrganizationID  string            `json:"organizationId"`
	Version         int32             `json:"version"`
	CreatedAt       time.Time         `json:"createdAt"`
	CreatorUsername string            `json:"-"`
}

// TenderVersion представляет неизменяемый снимок тендера в истории версий.
type TenderVersion struct {
	ID              string            `json:"id"`
	TenderID        string            `json:"tenderId"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Status          TenderStatus      `json:"status"`
	ServiceType     TenderServiceType `json:"serviceType"`
	OrganizationID  string            `json:"organizationId"`
	Version         int32             `json:"version"`
	CreatedAt       time.Time         `json:"createdAt"`
	CreatorUsername string            `json:"-"`
}

// TenderRequest представляет структуру запроса для создания или обновления тендера.
type TenderRequest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	ServiceType     TenderServiceType `json:"serviceType"`
	OrganizationID  string            `json:"organizationId"`
	CreatorUsername string            `json:"creatorUsername"`
}
