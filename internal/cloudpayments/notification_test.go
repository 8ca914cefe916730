package cloudpayments

import (
	"net/url"
	"testing"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Form(t *testing.T) {
	body := url.Values{
		"TransactionId":  {"1504"},
		"Amount":         {"1490.50"},
		"Currency":       {"RUB"},
		"Status":         {"Completed"},
		"Type":           {"Payment"},
		"InvoiceId":      {"course-3"},
		"SubscriptionId": {"sc_1"},
		"Email":          {"a@b.ru"},
		"CardFirstSix":   {"424242"},
	}.Encode()

	n, err := Parse("application/x-www-form-urlencoded; charset=utf-8", []byte(body))
	require.NoError(t, err)

	assert.Equal(t, "1504", n.TransactionID.String())
	assert.Equal(t, "Payment", n.Type)
	assert.Equal(t, "sc_1", n.SubscriptionID.String())
	assert.True(t, n.IsCompleted())

	amount, err := n.AmountKopecks()
	require.NoError(t, err)
	assert.Equal(t, int64(149050), amount)
}

func TestParse_JSONWithNumbers(t *testing.T) {
	body := `{"TransactionId": 1504, "PaymentTransactionId": null, "Amount": 10.1, "AccountId": 77, "Status": "Declined"}`

	n, err := Parse("application/json", []byte(body))
	require.NoError(t, err)

	assert.Equal(t, "1504", n.TransactionID.String())
	assert.Empty(t, n.PaymentTransactionID.String())
	assert.Equal(t, "77", n.AccountID.String())
	assert.False(t, n.IsCompleted())
	assert.True(t, n.IsDeclined())

	amount, err := n.AmountKopecks()
	require.NoError(t, err)
	assert.Equal(t, int64(1010), amount)
}

func TestParse_JSONWithoutContentType(t *testing.T) {
	n, err := Parse("", []byte(` {"TransactionId":"9"}`))
	require.NoError(t, err)
	assert.Equal(t, "9", n.TransactionID.String())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("application/json", []byte("  "))
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = Parse("application/json", []byte("{broken"))
	assert.Error(t, err)

	_, err = Parse("application/x-www-form-urlencoded", []byte("a=%zz"))
	assert.Error(t, err)
}

func TestAmountKopecks_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "-1", "NaN"} {
		n := &Notification{Amount: FlexString(raw)}
		_, err := n.AmountKopecks()
		assert.ErrorIs(t, err, ErrInvalidAmount, raw)
	}

	n := &Notification{Amount: "99,99"}
	amount, err := n.AmountKopecks()
	require.NoError(t, err)
	assert.Equal(t, int64(9999), amount)
}

func TestResolveItem(t *testing.T) {
	tests := []struct {
		name     string
		n        Notification
		wantType model.ItemType
		wantID   int64
		wantUser string
		wantErr  bool
	}{
		{
			name:     "data with numeric id",
			n:        Notification{Data: `{"itemType":"course","itemId":5,"userId":"u-1"}`},
			wantType: model.ItemTypeCourse,
			wantID:   5,
			wantUser: "u-1",
		},
		{
			name:     "data with string id",
			n:        Notification{Data: `{"itemType":"Booking","itemId":"12"}`},
			wantType: model.ItemTypeBooking,
			wantID:   12,
		},
		{
			name:     "invoice fallback",
			n:        Notification{InvoiceID: "subscription_4"},
			wantType: model.ItemTypeSubscription,
			wantID:   4,
		},
		{
			name:     "data wins over invoice",
			n:        Notification{Data: `{"itemType":"course","itemId":1}`, InvoiceID: "booking-2"},
			wantType: model.ItemTypeCourse,
			wantID:   1,
		},
		{name: "unknown type", n: Notification{Data: `{"itemType":"merch","itemId":1}`}, wantErr: true},
		{name: "bad invoice", n: Notification{InvoiceID: "order-15"}, wantErr: true},
		{name: "broken data", n: Notification{Data: `{"itemType":`}, wantErr: true},
		{name: "nothing", n: Notification{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := tt.n.ResolveItem()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, item.Type)
			assert.Equal(t, tt.wantID, item.ID)
			if tt.wantUser != "" {
				require.NotNil(t, item.UserID)
				assert.Equal(t, tt.wantUser, *item.UserID)
			} else {
				assert.Nil(t, item.UserID)
			}
		})
	}
}

func TestContactEmail(t *testing.T) {
	assert.Equal(t, "a@b.ru", (&Notification{Email: " A@B.ru "}).ContactEmail())
	assert.Equal(t, "c@d.ru", (&Notification{Data: `{"email":"C@d.ru"}`}).ContactEmail())
	assert.Equal(t, "acc@e.ru", (&Notification{AccountID: "acc@e.ru"}).ContactEmail())
}
