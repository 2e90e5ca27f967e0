package models

import "time"

type (
	BidStatus       string // Статус предложения
	BidAuthorType   string // Автор предложения
	BidDecisionType string // Решение по предложению
)

const (
	Organization BidAuthorType = "Organization" // Предложение создала организация
	User         BidAuthorType = "User"         // Предложение создал пользователь

	CreatedBid   BidStatus = "Created"   // Предложение создано
	PublishedBid BidStatus = "Published" // Предложение опубликовано
	CanceledBid  BidStatus = "Canceled"  // Предложение отменено

	ApprovedBid BidDecisionType = "Approved" // Предложение одобрено
	RejectedBid BidDecisionType = "Rejected" // Предложение отклонено
)

// Valid проверяет, что статус предложения входит в закрытый набор значений.
func (s BidStatus) Valid() bool {
	switch s {
	case CreatedBid, PublishedBid, CanceledBid:
		return true
	}
	return false
}

// Valid проверяет, что тип автора входит в закрытый набор значений.
func (t BidAuthorType) Valid() bool {
	switch t {
	case Organization, User:
		return true
	}
	return false
}

// Valid проверяет, что решение входит в закрытый набор значений.
func (d BidDecisionType) Valid() bool {
	switch d {
	case ApprovedBid, RejectedBid:
		return true
	}
	return false
}

// Bid представляет модель предложения.
type Bid struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      BidStatus     `json:"status"`
	TenderID    string        `json:"tenderId"`
	AuthorType  BidAuthorType `json:"authorType"`
	AuthorID    string        `json:"authorId"`
	Version     int32         `json:"version"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// BidVersion представляет неизменяемый снимок предложения в истории версий.
type BidVersion struct {
	ID          string        `json:"id"`
	BidID       string        `json:"bidId"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      BidStatus     `json:"status"`
	TenderID    string        `json:"tenderId"`
	AuthorType  BidAuthorType `json:"authorType"`
	AuthorID    string        `json:"authorId"`
	Version     int32         `json:"version"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// BidRequest представляет структуру запроса для создания или обновления предложения.
type BidRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	TenderID    string        `json:"tenderId"`
	AuthorType  BidAuthorType `json:"authorType"`
	AuthorID    string        `json:"authorId"`
}

// BidReview представляет модель отзывов по предложению.
type BidReview struct {
	ID          string    `json:"id"`
	BidID       string    `json:"-"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BidDecision представляет записанный голос ответственного по предложению.
type BidDecision struct {
	ID       string          `json:"id"`
	BidID    string          `json:"bidId"`
	Decision BidDecisionType `json:"decision"`
	Username string          `json:"username"`
}

// BidResponsible связывает предложение с организацией, принимающей по нему решение.
// OrganizationID пустой, когда автор - пользователь без организации.
type BidResponsible struct {
	ID             string `json:"id"`
	BidID          string `json:"bidId"`
	OrganizationID string `json:"organizationId"`
}
