package api

import (
	"io"
	"net/http"

	"github.com/Freeeeeet/coach_backend/internal/cloudpayments"
	"github.com/Freeeeeet/coach_backend/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// webhookKinds тип уведомления по последнему сегменту адреса вебхука
var webhookKinds = map[string]string{
	"pay":       cloudpayments.TypePayment,
	"recurrent": cloudpayments.TypeRecurrentPayment,
	"refund":    cloudpayments.TypeRefund,
	"fail":      cloudpayments.TypeFail,
}

// PaymentSuccess POST /api/payments/success: уведомление Pay
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	h.handleWebhook(w, r, cloudpayments.TypePayment)
}

// PaymentWebhook PUT /api/payments/success и POST /api/webhooks/cloudpayments: тип берётся из поля Type
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	h.handleWebhook(w, r, "")
}

// PaymentWebhookByKind POST /api/webhooks/cloudpayments/{kind}
func (h *Handler) PaymentWebhookByKind(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "kind") == "check" {
		h.PaymentCheck(w, r)
		return
	}

	kind, ok := webhookKinds[chi.URLParam(r, "kind")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.handleWebhook(w, r, kind)
}

// PaymentCheck POST /api/payments/check: уведомление Check до списания
func (h *Handler) PaymentCheck(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readWebhook(w, r, "")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cloudpayments.Response{Code: h.payments.HandleCheck(r.Context(), req)})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request, defaultType string) {
	req, ok := h.readWebhook(w, r, defaultType)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cloudpayments.Response{Code: h.payments.HandleNotification(r.Context(), req)})
}

// readWebhook читает сырое тело: подпись считается по байтам, поэтому форму не разбираем
func (h *Handler) readWebhook(w http.ResponseWriter, r *http.Request, defaultType string) (service.WebhookRequest, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("Failed to read payment notification body",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusOK, cloudpayments.Response{Code: cloudpayments.CodeRejected})
		return service.WebhookRequest{}, false
	}

	return service.WebhookRequest{
		Body:        body,
		ContentType: r.Header.Get(headerContentType),
		Header:      r.Header,
		DefaultType: defaultType,
	}, true
}
