package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository"
)

var errDatabaseDown = errors.New("database is down")

type fakeBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*model.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[int64]*model.Booking)}
}

func (r *fakeBookingRepo) CreateIfSlotFree(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.confirmedLocked(booking.TrainerID, booking.Date, booking.Time, 0) {
		return repository.ErrSlotTaken
	}
	r.nextID++
	booking.ID = r.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	stored := *booking
	r.bookings[booking.ID] = &stored
	return nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBookingRepo) GetConfirmedByTrainer(_ context.Context, trainerID int64, from, to string) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var list []*model.Booking
	for _, b := range r.bookings {
		if b.TrainerID == trainerID && b.Status == model.BookingStatusConfirmed && b.Date >= from && b.Date <= to {
			copied := *b
			list = append(list, &copied)
		}
	}
	return list, nil
}

// confirm ведёт себя как частичный уникальный индекс по подтверждённым слотам
func (r *fakeBookingRepo) confirm(id int64) (*model.Booking, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, false
	}
	if b.Status != model.BookingStatusPending {
		copied := *b
		return &copied, false
	}
	if r.confirmedLocked(b.TrainerID, b.Date, b.Time, b.ID) {
		copied := *b
		return &copied, true
	}
	b.Status = model.BookingStatusConfirmed
	copied := *b
	return &copied, false
}

func (r *fakeBookingRepo) setStatus(id int64, status model.BookingStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		b.Status = status
	}
}

func (r *fakeBookingRepo) confirmedLocked(trainerID int64, date, slotTime string, except int64) bool {
	for _, b := range r.bookings {
		if b.ID != except && b.TrainerID == trainerID && b.Date == date && b.Time == slotTime &&
			b.Status == model.BookingStatusConfirmed {
			return true
		}
	}
	return false
}

type fakeScheduleRepo struct {
	schedules map[int64]*model.TrainerSchedule
	err       error
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: make(map[int64]*model.TrainerSchedule)}
}

func (r *fakeScheduleRepo) GetByTrainerID(_ context.Context, trainerID int64) (*model.TrainerSchedule, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.schedules[trainerID], nil
}

func (r *fakeScheduleRepo) Upsert(_ context.Context, schedule *model.TrainerSchedule) error {
	if r.err != nil {
		return r.err
	}
	r.schedules[schedule.TrainerID] = schedule
	return nil
}

type fakeAccess struct {
	purchaseID int64
	email      string
	courseID   int64
	revoked    bool
}

// fakePurchaseRepo повторяет транзакционную логику PurchaseRepository в памяти
type fakePurchaseRepo struct {
	mu        sync.Mutex
	nextID    int64
	purchases map[string]*model.Purchase
	access    []*fakeAccess
	grants    int
	bookings  *fakeBookingRepo
	err       error
}

func newFakePurchaseRepo(bookings *fakeBookingRepo) *fakePurchaseRepo {
	return &fakePurchaseRepo{
		purchases: make(map[string]*model.Purchase),
		bookings:  bookings,
	}
}

func (r *fakePurchaseRepo) ApplyPayment(_ context.Context, purchase *model.Purchase, _ *string) (*repository.PaymentResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	result := &repository.PaymentResult{Purchase: purchase}
	if _, ok := r.purchases[purchase.TransactionID]; ok {
		result.Duplicate = true
		return result, nil
	}
	r.insertLocked(purchase)

	switch {
	case purchase.GrantsCourseAccess():
		r.access = append(r.access, &fakeAccess{purchaseID: purchase.ID, email: purchase.Email, courseID: purchase.ItemID})
		r.grants++
		result.AccessGranted = true
	case purchase.ItemType == model.ItemTypeBooking:
		booking, conflict := r.bookings.confirm(purchase.ItemID)
		result.Booking = booking
		result.BookingConflict = conflict
	}
	return result, nil
}

func (r *fakePurchaseRepo) ApplyRefund(_ context.Context, transactionID string) (*repository.RefundResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	p, ok := r.purchases[transactionID]
	if !ok {
		return &repository.RefundResult{NotFound: true}, nil
	}
	result := &repository.RefundResult{Purchase: p}
	if p.Status == model.PurchaseStatusRefunded {
		result.AlreadyRefunded = true
		return result, nil
	}
	p.Status = model.PurchaseStatusRefunded
	for _, a := range r.access {
		if a.purchaseID == p.ID && !a.revoked {
			a.revoked = true
			result.AccessRevoked++
		}
	}
	if p.ItemType == model.ItemTypeBooking {
		r.bookings.setStatus(p.ItemID, model.BookingStatusCancelled)
		result.Booking, _ = r.bookings.GetByID(context.Background(), p.ItemID)
	}
	return result, nil
}

func (r *fakePurchaseRepo) RecordFailure(_ context.Context, purchase *model.Purchase) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return false, r.err
	}
	if _, ok := r.purchases[purchase.TransactionID]; ok {
		return false, nil
	}
	r.insertLocked(purchase)
	return true, nil
}

func (r *fakePurchaseRepo) GetLatestBySubscriptionID(_ context.Context, subscriptionID string) (*model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *model.Purchase
	for _, p := range r.purchases {
		if p.SubscriptionID == subscriptionID && p.Status != model.PurchaseStatusFailed {
			if latest == nil || p.ID > latest.ID {
				latest = p
			}
		}
	}
	return latest, nil
}

func (r *fakePurchaseRepo) insertLocked(purchase *model.Purchase) {
	r.nextID++
	purchase.ID = r.nextID
	stored := *purchase
	r.purchases[purchase.TransactionID] = &stored
}

func (r *fakePurchaseRepo) activeAccess(email string, courseID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.access {
		if a.email == email && a.courseID == courseID && !a.revoked {
			n++
		}
	}
	return n
}

func (r *fakePurchaseRepo) get(transactionID string) *model.Purchase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.purchases[transactionID]
}

func (r *fakePurchaseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.purchases)
}

// HasAccess и GetActiveByEmail, чтобы fakePurchaseRepo служил и AccessRepository
func (r *fakePurchaseRepo) HasAccess(_ context.Context, email string, courseID int64) (bool, error) {
	return r.activeAccess(email, courseID) > 0, nil
}

func (r *fakePurchaseRepo) GetActiveByEmail(_ context.Context, email string) ([]*model.CourseAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var list []*model.CourseAccess
	for _, a := range r.access {
		if a.email == email && !a.revoked {
			list = append(list, &model.CourseAccess{Email: a.email, CourseID: a.courseID, PurchaseID: a.purchaseID})
		}
	}
	return list, nil
}

type fakeCourseRepo struct {
	courses map[int64]*model.Course
}

func (r *fakeCourseRepo) GetByID(_ context.Context, id int64) (*model.Course, error) {
	return r.courses[id], nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	created   int
	completed int
	conflicts int
	refunded  int
	unmatched int
}

func (n *fakeNotifier) BookingCreated(context.Context, *model.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created++
}

func (n *fakeNotifier) PaymentCompleted(context.Context, *repository.PaymentResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed++
}

func (n *fakeNotifier) BookingConflict(context.Context, *model.Booking, *model.Purchase) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conflicts++
}

func (n *fakeNotifier) PaymentRefunded(context.Context, *repository.RefundResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunded++
}

func (n *fakeNotifier) UnmatchedPayment(context.Context, *model.Purchase) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unmatched++
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return p.err
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fakeBlobStorage struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeBlobStorage() *fakeBlobStorage {
	return &fakeBlobStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *fakeBlobStorage) PutObject(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.objects[key] = buf.Bytes()
	s.types[key] = contentType
	return "https://cdn.example.com/videos-bucket/" + strings.TrimPrefix(key, "/"), nil
}

type fakeVideoRepo struct {
	videos []*model.Video
}

func (r *fakeVideoRepo) Create(_ context.Context, video *model.Video) error {
	video.ID = int64(len(r.videos) + 1)
	r.videos = append(r.videos, video)
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
