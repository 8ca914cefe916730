package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository"
)

// FormatPrice форматирует цену из копеек в рубли, без копеек если они равны 0
func FormatPrice(kopecks int64) string {
	price := float64(kopecks) / 100
	if kopecks%100 == 0 {
		return fmt.Sprintf("%.0f ₽", price)
	}
	return fmt.Sprintf("%.2f ₽", price)
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d ч", hours)
	}
	return fmt.Sprintf("%d ч %d мин", hours, mins)
}

// GetWeekdayShortName возвращает краткое название дня недели на русском
func GetWeekdayShortName(weekday time.Weekday) string {
	names := []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	if int(weekday) >= 0 && int(weekday) < len(names) {
		return names[weekday]
	}
	return "?"
}

// FormatBookingDate 2026-10-19 -> 19.10.2026 (Пн)
func FormatBookingDate(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s (%s)", d.Format("02.01.2006"), GetWeekdayShortName(d.Weekday()))
}

// FormatBookingLine одна строка списка записей
func FormatBookingLine(b *model.Booking) string {
	status := map[model.BookingStatus]string{
		model.BookingStatusPending:   "⏳",
		model.BookingStatusConfirmed: "✅",
		model.BookingStatusCancelled: "❌",
	}[b.Status]

	line := fmt.Sprintf("%s %s, %s, тренер #%d, %s", status, b.Time, FormatDuration(b.DurationMinutes), b.TrainerID, b.ServiceType)
	if b.Notes != "" {
		line += "\n   📝 " + b.Notes
	}
	return line
}

func bookingCreatedText(b *model.Booking) string {
	return fmt.Sprintf(
		"📝 Новая заявка #%d\n\n"+
			"📅 %s в %s\n"+
			"⏱ %s\n"+
			"🏋️ %s, тренер #%d\n"+
			"💰 %s\n\n"+
			"Ожидает оплаты",
		b.ID,
		FormatBookingDate(b.Date), b.Time,
		FormatDuration(b.DurationMinutes),
		b.ServiceType, b.TrainerID,
		FormatPrice(b.Price),
	)
}

func paymentCompletedText(result *repository.PaymentResult) string {
	p := result.Purchase

	var sb strings.Builder
	fmt.Fprintf(&sb, "💳 Оплата %s\n\n", FormatPrice(p.Amount))
	if p.Email != "" {
		fmt.Fprintf(&sb, "👤 %s\n", p.Email)
	}

	switch {
	case result.Booking != nil && result.Booking.Status == model.BookingStatusConfirmed:
		fmt.Fprintf(&sb, "✅ Запись #%d подтверждена: %s в %s", result.Booking.ID, FormatBookingDate(result.Booking.Date), result.Booking.Time)
	case p.ItemType == model.ItemTypeBooking:
		fmt.Fprintf(&sb, "📅 Запись #%d", p.ItemID)
	case p.ItemType == model.ItemTypeSubscription:
		fmt.Fprintf(&sb, "🔁 Подписка на курс #%d", p.ItemID)
	default:
		fmt.Fprintf(&sb, "📚 Курс #%d", p.ItemID)
	}

	return sb.String()
}

func bookingConflictText(b *model.Booking, p *model.Purchase) string {
	slot := fmt.Sprintf("запись #%d", p.ItemID)
	if b != nil {
		slot = fmt.Sprintf("запись #%d на %s в %s", b.ID, FormatBookingDate(b.Date), b.Time)
	}
	return fmt.Sprintf(
		"⚠️ Оплачена %s, но слот уже занят\n\n"+
			"💳 Транзакция %s, %s\n"+
			"👤 %s\n\n"+
			"Свяжитесь с клиентом: перенос или возврат",
		slot, p.TransactionID, FormatPrice(p.Amount), p.Email,
	)
}

func paymentRefundedText(result *repository.RefundResult) string {
	p := result.Purchase
	text := fmt.Sprintf("↩️ Возврат %s по транзакции %s", FormatPrice(p.Amount), p.TransactionID)
	if result.AccessRevoked > 0 {
		text += fmt.Sprintf("\n🔒 Отозвано доступов: %d", result.AccessRevoked)
	}
	if result.Booking != nil {
		text += fmt.Sprintf("\n❌ Запись #%d отменена", result.Booking.ID)
	}
	return text
}

func unmatchedPaymentText(p *model.Purchase) string {
	return fmt.Sprintf(
		"❓ Оплата без распознанного товара\n\n"+
			"💳 Транзакция %s, %s\n"+
			"👤 %s\n\n"+
			"Покупка #%d сохранена, назначьте курс или запись вручную",
		p.TransactionID, FormatPrice(p.Amount), p.Email, p.ID,
	)
}
