package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *MollieClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewMollieClient(MollieConfig{
		APIKey:  "test_key",
		BaseURL: srv.URL + "/",
		Timeout: time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestGetPaymentDecodesProviderPayment(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payments/tr_abc", r.URL.Path)
		assert.Equal(t, "Bearer test_key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "tr_abc",
			"status": "paid",
			"method": "ideal",
			"amount": {"currency": "EUR", "value": "49.95"},
			"metadata": {"orderId": "ORD-1"},
			"createdAt": "2025-03-01T12:00:00+00:00",
			"_links": {"checkout": {"href": "https://www.mollie.com/checkout/tr_abc"}}
		}`))
	})

	payment, err := client.GetPayment(context.Background(), "tr_abc")
	require.NoError(t, err)
	assert.Equal(t, "tr_abc", payment.ID)
	assert.Equal(t, "paid", payment.Status)
	assert.Equal(t, "ideal", payment.Method)
	assert.Equal(t, 4995, payment.AmountCents)
	assert.Equal(t, "ORD-1", payment.OrderID)
	assert.Equal(t, "https://www.mollie.com/checkout/tr_abc", payment.CheckoutURL)
}

func TestGetPaymentErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrPaymentNotFound)
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				assert.True(t, IsUnavailable(err))
			},
		},
		{
			name:   "client error",
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, err error) {
				assert.False(t, IsUnavailable(err))
				assert.NotErrorIs(t, err, ErrPaymentNotFound)
				assert.Contains(t, err.Error(), "(422)")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status": 422, "title": "Unprocessable", "detail": "amount is too low"}`))
			})

			_, err := client.GetPayment(context.Background(), "tr_x")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGetPaymentUnreachableIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client, err := NewMollieClient(MollieConfig{APIKey: "test_key", BaseURL: baseURL, Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = client.GetPayment(context.Background(), "tr_abc")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestCreatePaymentSendsAmountAndURLs(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/payments", r.URL.Path)

		var body struct {
			Amount struct {
				Currency string `json:"currency"`
				Value    string `json:"value"`
			} `json:"amount"`
			RedirectURL string            `json:"redirectUrl"`
			WebhookURL  string            `json:"webhookUrl"`
			Method      []string          `json:"method"`
			Metadata    map[string]string `json:"metadata"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "EUR", body.Amount.Currency)
		assert.Equal(t, "12.05", body.Amount.Value)
		assert.Equal(t, "https://shop.example/return", body.RedirectURL)
		assert.Equal(t, "https://api.example/webhooks/mollie", body.WebhookURL)
		assert.Equal(t, "ORD-1", body.Metadata["orderId"])
		assert.Equal(t, []string{"ideal"}, body.Method)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"tr_new","status":"open","amount":{"currency":"EUR","value":"12.05"},"_links":{"checkout":{"href":"https://pay.example/tr_new"}}}`))
	})

	payment, err := client.CreatePayment(context.Background(), CreatePaymentInput{
		AmountCents: 1205,
		Description: "Order ORD-1",
		RedirectURL: "https://shop.example/return",
		WebhookURL:  "https://api.example/webhooks/mollie",
		Method:      "ideal",
		OrderID:     "ORD-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "tr_new", payment.ID)
	assert.Equal(t, "https://pay.example/tr_new", payment.CheckoutURL)
}

func TestListMethods(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/methods", r.URL.Path)
		_, _ = w.Write([]byte(`{"_embedded":{"methods":[{"id":"ideal","description":"iDEAL","image":{"svg":"https://img/ideal.svg"}},{"id":"creditcard","description":"Card"}]}}`))
	})

	methods, err := client.ListMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, Method{ID: "ideal", Description: "iDEAL", ImageURL: "https://img/ideal.svg"}, methods[0])
}

func TestAmountFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "19.95", FormatAmount(1995))
	assert.Equal(t, "-1.50", FormatAmount(-150))

	for _, tc := range []struct {
		in   string
		want int
	}{
		{"19.95", 1995},
		{"10", 1000},
		{"10.5", 1050},
		{"-1.50", -150},
		{"", 0},
	} {
		got, err := ParseAmount(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"1.999", "1.-5", "1.+5", "+1.00", "--1", "-", ".50", "1.5a", "1,50", "abc"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}
