package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const adminChat int64 = 777

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: params.ChatID.(int64), text: params.Text})
	return &models.Message{}, nil
}

type fakeBookings struct {
	byDate map[string][]*model.Booking
	dates  []string
	err    error
}

func (f *fakeBookings) GetActiveByDate(_ context.Context, date string) ([]*model.Booking, error) {
	f.dates = append(f.dates, date)
	return f.byDate[date], f.err
}

type fakeSlots struct {
	slots      map[string][]string
	trainerID  int64
	start, end string
}

func (f *fakeSlots) GetAvailableSlots(_ context.Context, trainerID int64, start, end string) (map[string][]string, error) {
	f.trainerID, f.start, f.end = trainerID, start, end
	return f.slots, nil
}

func newTestController(bookings *fakeBookings, slots *fakeSlots) (*BotController, *fakeSender) {
	sender := &fakeSender{}
	loc := time.FixedZone("MSK", 3*60*60)
	return &BotController{
		sender:      sender,
		bookings:    bookings,
		slots:       slots,
		adminChatID: adminChat,
		location:    loc,
		// 23:30 UTC - в Москве уже суббота
		now:    func() time.Time { return time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC) },
		logger: zap.NewNop(),
	}, sender
}

func message(chatID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{Chat: models.Chat{ID: chatID}, Text: text}}
}

func TestHandleToday(t *testing.T) {
	bookings := &fakeBookings{byDate: map[string][]*model.Booking{
		"2026-10-17": {
			{ID: 1, TrainerID: 1, Time: "10:00", DurationMinutes: 60, ServiceType: "personal", Status: model.BookingStatusConfirmed},
			{ID: 2, TrainerID: 1, Time: "12:00", DurationMinutes: 90, ServiceType: "personal", Status: model.BookingStatusPending, Notes: "колено"},
		},
	}}
	c, sender := newTestController(bookings, &fakeSlots{})

	c.HandleToday(context.Background(), nil, message(adminChat, "/today"))

	assert.Equal(t, []string{"2026-10-17"}, bookings.dates)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, adminChat, sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "17.10.2026 (Сб)")
	assert.Contains(t, sender.sent[0].text, "✅ 10:00")
	assert.Contains(t, sender.sent[0].text, "⏳ 12:00")
	assert.Contains(t, sender.sent[0].text, "колено")
}

func TestHandleTomorrowEmpty(t *testing.T) {
	bookings := &fakeBookings{}
	c, sender := newTestController(bookings, &fakeSlots{})

	c.HandleTomorrow(context.Background(), nil, message(adminChat, "/tomorrow"))

	assert.Equal(t, []string{"2026-10-18"}, bookings.dates)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "записей нет")
}

func TestHandleDate(t *testing.T) {
	bookings := &fakeBookings{}
	c, sender := newTestController(bookings, &fakeSlots{})

	c.HandleDate(context.Background(), nil, message(adminChat, "/date 2026-12-31"))
	c.HandleDate(context.Background(), nil, message(adminChat, "/date завтра"))

	assert.Equal(t, []string{"2026-12-31"}, bookings.dates)
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].text, "ГГГГ-ММ-ДД")
}

func TestHandleDate_RepositoryError(t *testing.T) {
	c, sender := newTestController(&fakeBookings{err: errors.New("db down")}, &fakeSlots{})

	c.HandleToday(context.Background(), nil, message(adminChat, "/today"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Не удалось получить записи")
}

func TestHandleSlots(t *testing.T) {
	slots := &fakeSlots{slots: map[string][]string{
		"2026-10-19": {"10:00", "11:00"},
		"2026-10-17": {},
	}}
	c, sender := newTestController(&fakeBookings{}, slots)

	c.HandleSlots(context.Background(), nil, message(adminChat, "/slots"))

	assert.Equal(t, int64(1), slots.trainerID)
	assert.Equal(t, "2026-10-17", slots.start)
	assert.Equal(t, "2026-10-23", slots.end)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "🕐 Свободные слоты:\n\n17.10.2026 (Сб): всё занято\n19.10.2026 (Пн): 10:00, 11:00\n", sender.sent[0].text)
}

func TestHandleSlots_NothingFree(t *testing.T) {
	c, sender := newTestController(&fakeBookings{}, &fakeSlots{slots: map[string][]string{"2026-10-17": {}}})

	c.HandleSlots(context.Background(), nil, message(adminChat, "/slots"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "📭 Свободных слотов на неделю нет", sender.sent[0].text)
}

func TestRequireAdmin(t *testing.T) {
	bookings := &fakeBookings{}
	c, sender := newTestController(bookings, &fakeSlots{})

	c.HandleToday(context.Background(), nil, message(42, "/today"))
	c.HandleHelp(context.Background(), nil, &models.Update{})

	assert.Empty(t, bookings.dates)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "только администратору")
}
