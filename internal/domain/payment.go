package domain

import "time"

const (
	PaymentOutstanding = "outstanding"
	PaymentPending     = "pending"
	PaymentUnpaid      = "unpaid"
	PaymentPaid        = "paid"
)

type Payment struct {
	PaymentID   string     `json:"id" dynamodbav:"payment_id"`
	StudentID   string     `json:"student_id" dynamodbav:"student_id"`
	Status      string     `json:"status" dynamodbav:"status"`
	Amount      float64    `json:"amount" dynamodbav:"amount"`
	Description string     `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Month       int        `json:"month" dynamodbav:"month"`
	Year        int        `json:"year" dynamodbav:"year"`
	DueDate     *time.Time `json:"due_date,omitempty" dynamodbav:"due_date,unixtime,omitempty"`
}

// DescriptionOrDefault falls back to "tuition fees".
func (p *Payment) DescriptionOrDefault() string {
	if p.Description == "" {
		return "tuition fees"
	}
	return p.Description
}
