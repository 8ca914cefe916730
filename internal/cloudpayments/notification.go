package cloudpayments

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/url"
	"strconv"
	"strings"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/goccy/go-json"
	"github.com/gorilla/schema"
)

// Тип уведомления в поле Type
const (
	TypePayment          = "Payment"
	TypeRefund           = "Refund"
	TypeRecurrentPayment = "RecurrentPayment"
	TypeFail             = "Fail"
)

// StatusCompleted статус успешной транзакции
const StatusCompleted = "Completed"

// StatusDeclined статус отклонённой транзакции
const StatusDeclined = "Declined"

var (
	ErrEmptyBody      = errors.New("empty notification body")
	ErrNoTransaction  = errors.New("notification has no TransactionId")
	ErrUnknownItem    = errors.New("notification does not reference a purchasable item")
	ErrInvalidAmount  = errors.New("invalid notification amount")
	formDecoder       = newFormDecoder()
	invoiceSeparators = []string{":", "-", "_"}
)

// FlexString строка, которую провайдер может прислать и строкой, и числом
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(data)
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// Notification уведомление CloudPayments (Pay, Fail, Refund, Recurrent)
type Notification struct {
	TransactionID        FlexString `json:"TransactionId" schema:"TransactionId"`
	PaymentTransactionID FlexString `json:"PaymentTransactionId" schema:"PaymentTransactionId"`
	Amount               FlexString `json:"Amount" schema:"Amount"`
	Currency             string     `json:"Currency" schema:"Currency"`
	DateTime             string     `json:"DateTime" schema:"DateTime"`
	Status               string     `json:"Status" schema:"Status"`
	OperationType        string     `json:"OperationType" schema:"OperationType"`
	Type                 string     `json:"Type" schema:"Type"`
	InvoiceID            FlexString `json:"InvoiceId" schema:"InvoiceId"`
	AccountID            FlexString `json:"AccountId" schema:"AccountId"`
	SubscriptionID       FlexString `json:"SubscriptionId" schema:"SubscriptionId"`
	Email                string     `json:"Email" schema:"Email"`
	Name                 string     `json:"Name" schema:"Name"`
	Reason               string     `json:"Reason" schema:"Reason"`
	ReasonCode           FlexString `json:"ReasonCode" schema:"ReasonCode"`
	Data                 FlexString `json:"Data" schema:"Data"`
}

// Payload произвольные данные, переданные виджету при оплате
type Payload struct {
	ItemType string     `json:"itemType"`
	ItemID   FlexString `json:"itemId"`
	UserID   string     `json:"userId"`
	Email    string     `json:"email"`
}

// Item то, за что заплатили
type Item struct {
	Type   model.ItemType
	ID     int64
	UserID *string
}

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	return d
}

// Parse разбирает тело уведомления: JSON или application/x-www-form-urlencoded
func Parse(contentType string, body []byte) (*Notification, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	var n Notification
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || (mediaType == "" && bytes.HasPrefix(bytes.TrimSpace(body), []byte("{"))) {
		if err := json.Unmarshal(body, &n); err != nil {
			return nil, fmt.Errorf("decode json notification: %w", err)
		}
		return &n, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse form notification: %w", err)
	}
	if err := formDecoder.Decode(&n, values); err != nil {
		return nil, fmt.Errorf("decode form notification: %w", err)
	}

	return &n, nil
}

// AmountKopecks сумма в копейках
func (n *Notification) AmountKopecks() (int64, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(n.Amount.String()), ",", ".")
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(amount * 100)), nil
}

// IsCompleted проверяет, что транзакция прошла
func (n *Notification) IsCompleted() bool {
	return n.Status == "" || strings.EqualFold(n.Status, StatusCompleted)
}

// IsDeclined проверяет, что банк отклонил транзакцию
func (n *Notification) IsDeclined() bool {
	return strings.EqualFold(n.Status, StatusDeclined)
}

// Payload разбирает поле Data; пустое Data - пустой payload
func (n *Notification) Payload() (*Payload, error) {
	var p Payload
	raw := strings.TrimSpace(n.Data.String())
	if raw == "" {
		return &p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode notification data: %w", err)
	}
	return &p, nil
}

// ResolveItem определяет товар: сначала из Data, затем из InvoiceId вида "booking-42"
func (n *Notification) ResolveItem() (*Item, error) {
	payload, err := n.Payload()
	if err != nil {
		return nil, err
	}

	item := &Item{}
	if payload.UserID != "" {
		userID := payload.UserID
		item.UserID = &userID
	}

	if payload.ItemType != "" && payload.ItemID != "" {
		itemType, ok := parseItemType(payload.ItemType)
		if !ok {
			return nil, ErrUnknownItem
		}
		id, err := strconv.ParseInt(payload.ItemID.String(), 10, 64)
		if err != nil {
			return nil, ErrUnknownItem
		}
		item.Type = itemType
		item.ID = id
		return item, nil
	}

	invoice := n.InvoiceID.String()
	for _, sep := range invoiceSeparators {
		prefix, rawID, found := strings.Cut(invoice, sep)
		if !found {
			continue
		}
		itemType, ok := parseItemType(prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			continue
		}
		item.Type = itemType
		item.ID = id
		return item, nil
	}

	return nil, ErrUnknownItem
}

// ContactEmail email покупателя: из уведомления или из Data
func (n *Notification) ContactEmail() string {
	if n.Email != "" {
		return strings.ToLower(strings.TrimSpace(n.Email))
	}
	if payload, err := n.Payload(); err == nil && payload.Email != "" {
		return strings.ToLower(strings.TrimSpace(payload.Email))
	}
	return strings.ToLower(strings.TrimSpace(n.AccountID.String()))
}

func parseItemType(s string) (model.ItemType, bool) {
	switch model.ItemType(strings.ToLower(strings.TrimSpace(s))) {
	case model.ItemTypeCourse:
		return model.ItemTypeCourse, true
	case model.ItemTypeBooking:
		return model.ItemTypeBooking, true
	case model.ItemTypeSubscription:
		return model.ItemTypeSubscription, true
	}
	return "", false
}
