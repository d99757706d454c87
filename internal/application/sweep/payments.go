package sweep

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tuition-notify/internal/application/dedupe"
	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

// OutstandingPayments reminds students of outstanding payments every three
// days. Payments more than a week past due are escalated to payment_overdue.
func (s *Sweeps) OutstandingPayments(ctx context.Context) (Result, error) {
	r := s.begin(OutstandingPayments)
	payments, err := s.d.Payments.ListByStatus(ctx, domain.PaymentOutstanding)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", OutstandingPayments, err)
	}
	scan := Scanner[domain.Payment]{Name: OutstandingPayments, Log: r.log}
	failed := scan.Run(ctx, payments, DefaultBatchSize, r.outstanding)
	return r.finish(len(payments), failed), nil
}

func (r *run) outstanding(ctx context.Context, p domain.Payment) error {
	days := 0
	if p.DueDate != nil {
		days = max(daysBetween(*p.DueDate, r.now, r.d.Location), 0)
	}

	t, title := domain.TypePaymentReminder, "Payment Reminder"
	if days > urgentAfterDays {
		t, title = domain.TypePaymentOverdue, "Urgent: Payment Overdue"
	}
	late := ""
	if days > 0 {
		late = fmt.Sprintf(" (%d days overdue)", days)
	}

	r.send(ctx, dispatch.Message{
		RecipientID:   p.StudentID,
		Type:          t,
		Title:         title,
		Body:          fmt.Sprintf("You have an outstanding payment of RM%.2f for %s%s. Please make your payment as soon as possible.", p.Amount, p.DescriptionOrDefault(), late),
		CorrelationID: p.PaymentID,
		Data:          paymentData(p, days),
	}, paymentCooldown)
	return nil
}

// PaymentsDueSoon warns once about each pending payment falling due within three days.
func (s *Sweeps) PaymentsDueSoon(ctx context.Context) (Result, error) {
	r := s.begin(PaymentsDueSoon)
	payments, err := s.d.Payments.ListByStatus(ctx, domain.PaymentPending)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", PaymentsDueSoon, err)
	}

	horizon := r.now.AddDate(0, 0, dueSoonWindowDays)
	var due []domain.Payment
	for _, p := range payments {
		if p.DueDate != nil && !p.DueDate.Before(r.now) && !p.DueDate.After(horizon) {
			due = append(due, p)
		}
	}

	scan := Scanner[domain.Payment]{Name: PaymentsDueSoon, Log: r.log}
	failed := scan.Run(ctx, due, DefaultBatchSize, r.dueSoon)
	return r.finish(len(due), failed), nil
}

func (r *run) dueSoon(ctx context.Context, p domain.Payment) error {
	days := int(math.Ceil(p.DueDate.Sub(r.now).Hours() / 24))
	r.send(ctx, dispatch.Message{
		RecipientID:   p.StudentID,
		Type:          domain.TypePaymentDueSoon,
		Title:         "Payment Due Soon",
		Body:          fmt.Sprintf("Your payment of RM%.2f for %s is due in %d days. Please prepare your payment.", p.Amount, p.DescriptionOrDefault(), days),
		CorrelationID: p.PaymentID,
		Data:          paymentData(p, 0),
	}, dedupe.Forever)
	return nil
}

// MonthlyOverduePayments flags unpaid payments that belong to an earlier month.
func (s *Sweeps) MonthlyOverduePayments(ctx context.Context) (Result, error) {
	r := s.begin(MonthlyOverduePayments)
	payments, err := s.d.Payments.ListByStatus(ctx, domain.PaymentUnpaid)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", MonthlyOverduePayments, err)
	}

	current := r.now.Year()*12 + int(r.now.Month())
	var overdue []domain.Payment
	for _, p := range payments {
		if p.Year*12+p.Month < current {
			overdue = append(overdue, p)
		}
	}

	scan := Scanner[domain.Payment]{Name: MonthlyOverduePayments, Log: r.log}
	failed := scan.Run(ctx, overdue, DefaultBatchSize, r.monthlyOverdue)
	return r.finish(len(overdue), failed), nil
}

func (r *run) monthlyOverdue(ctx context.Context, p domain.Payment) error {
	r.send(ctx, dispatch.Message{
		RecipientID:   p.StudentID,
		Type:          domain.TypePaymentOverdue,
		Title:         "Payment Overdue",
		Body:          fmt.Sprintf("Your payment of RM %.2f for %s %d is overdue. Please make payment as soon as possible.", p.Amount, time.Month(p.Month), p.Year),
		CorrelationID: p.PaymentID,
		Data:          paymentData(p, 0),
	}, paymentCooldown)
	return nil
}

func paymentData(p domain.Payment, daysOverdue int) map[string]interface{} {
	data := map[string]interface{}{
		"paymentId": p.PaymentID,
		"amount":    p.Amount,
		"month":     p.Month,
		"year":      p.Year,
	}
	if p.DueDate != nil {
		data["dueDate"] = *p.DueDate
	}
	if daysOverdue > 0 {
		data["daysOverdue"] = daysOverdue
	}
	return data
}
