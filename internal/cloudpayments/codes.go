package cloudpayments

// Code код ответа на уведомление. Провайдер смотрит только на него,
// HTTP-статус всегда 200; любой ненулевой код для Pay/Refund вызывает повторную доставку.
type Code int

const (
	CodeOK             Code = 0  // уведомление принято
	CodeInvalidInvoice Code = 10 // неизвестный заказ (Check)
	CodeInvalidAccount Code = 11 // неверный AccountId (Check)
	CodeInvalidAmount  Code = 12 // сумма не совпадает с ценой (Check)
	CodeRejected       Code = 13 // платёж не может быть принят: подпись, сбой БД
	CodeExpired        Code = 20 // заказ просрочен (Check)
)

// Response тело ответа провайдеру
type Response struct {
	Code Code `json:"code"`
}
