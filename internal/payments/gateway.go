package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pfstore/storefront-backend/pkg/config"
)

// CheckoutForm is the signed field set the client POSTs to the gateway's
// hosted checkout page.
type CheckoutForm struct {
	ActionURL string            `json:"action_url"`
	Fields    map[string]string `json:"fields"`
}

// Gateway builds hosted-checkout forms and verifies callback signatures for
// an ECPay-style payment provider.
type Gateway struct {
	cfg config.GatewayConfig
}

// NewGateway builds a gateway helper from configuration.
func NewGateway(cfg config.GatewayConfig) (*Gateway, error) {
	if cfg.CheckoutURL == "" {
		return nil, fmt.Errorf("gateway checkout url required")
	}
	if cfg.MerchantID == "" {
		return nil, fmt.Errorf("gateway merchant id required")
	}
	return &Gateway{cfg: cfg}, nil
}

// BuildCheckout assembles the signed form for one settlement attempt. The
// gateway expects integer amounts; totals are charged in whole currency units.
func (g *Gateway) BuildCheckout(orderNumber string, total decimal.Decimal, description string, now time.Time) CheckoutForm {
	fields := map[string]string{
		"MerchantID":        g.cfg.MerchantID,
		"MerchantTradeNo":   orderNumber,
		"MerchantTradeDate": now.Format("2006/01/02 15:04:05"),
		"PaymentType":       "aio",
		"TotalAmount":       total.Round(0).String(),
		"TradeDesc":         description,
		"ItemName":          description,
		"ReturnURL":         g.cfg.ReturnURL,
		"ChoosePayment":     "ALL",
		"EncryptType":       "1",
	}
	fields["CheckMacValue"] = g.checkMac(fields)
	return CheckoutForm{ActionURL: g.cfg.CheckoutURL, Fields: fields}
}

// VerifyCallback recomputes the mac over the callback fields. Payloads
// without a CheckMacValue fail closed.
func (g *Gateway) VerifyCallback(fields map[string]string) bool {
	received, ok := fields["CheckMacValue"]
	if !ok || received == "" {
		return false
	}
	unsigned := make(map[string]string, len(fields)-1)
	for k, v := range fields {
		if k == "CheckMacValue" {
			continue
		}
		unsigned[k] = v
	}
	return strings.EqualFold(g.checkMac(unsigned), received)
}

// checkMac implements the provider's SHA256 scheme: key/IV wrapped,
// alphabetically sorted query string, urlencoded and lowercased before
// hashing.
func (g *Gateway) checkMac(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("HashKey=" + g.cfg.HashKey)
	for _, k := range keys {
		b.WriteString("&" + k + "=" + fields[k])
	}
	b.WriteString("&HashIV=" + g.cfg.HashIV)

	encoded := strings.ToLower(url.QueryEscape(b.String()))
	sum := sha256.Sum256([]byte(encoded))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
