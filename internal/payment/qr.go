package payment

import (
	"fmt"
	"net/url"
)

// QRCodeURL builds the VietQR quick-link image URL a client renders for
// a deposit transfer. addInfo carries the structured reference so the
// webhook can route the payment back to the reservation.
func QRCodeURL(bankCode, accountNumber, accountName string, amount int64, addInfo string) string {
	q := url.Values{}
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("addInfo", addInfo)
	q.Set("accountName", accountName)
	return fmt.Sprintf("https://img.vietqr.io/image/%s-%s-compact2.png?%s",
		url.PathEscape(bankCode), url.PathEscape(accountNumber), q.Encode())
}
