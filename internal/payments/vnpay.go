package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kidsvax/clinic-platform/pkg/logging"
)

var vnpayTracer = otel.Tracer("kidsvax.internal.payments.vnpay")

const (
	vnpVersion    = "2.1.0"
	vnpCommand    = "pay"
	vnpCurrency   = "VND"
	vnpLocale     = "vn"
	vnpDateLayout = "20060102150405"
)

// VNPayConfig holds merchant credentials for the VNPay gateway.
type VNPayConfig struct {
	TerminalCode string
	HashSecret   string
	BaseURL      string
	ReturnURL    string
}

// VNPayService builds signed hosted-checkout URLs for the VNPay gateway.
type VNPayService struct {
	cfg    VNPayConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewVNPayService creates a VNPay checkout provider. Returns nil when the
// terminal code or hash secret is missing so callers can fall back.
func NewVNPayService(cfg VNPayConfig, logger *logging.Logger) *VNPayService {
	if cfg.TerminalCode == "" || cfg.HashSecret == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &VNPayService{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// CreatePaymentLink builds the signed redirect URL for one deposit.
func (s *VNPayService) CreatePaymentLink(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error) {
	_, span := vnpayTracer.Start(ctx, "vnpay.create_link")
	defer span.End()
	span.SetAttributes(
		attribute.String("kidsvax.booking_ref", params.BookingRef.String()),
		attribute.Int64("kidsvax.amount_vnd", params.AmountVND),
	)

	if params.BookingRef == uuid.Nil {
		return nil, fmt.Errorf("payments: vnpay checkout requires booking ref")
	}
	if params.AmountVND <= 0 {
		return nil, fmt.Errorf("payments: vnpay checkout requires positive amount")
	}

	returnURL := params.ReturnURL
	if returnURL == "" {
		returnURL = s.cfg.ReturnURL
	}
	createdAt := s.now()
	expiresAt := params.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = createdAt.Add(15 * time.Minute)
	}

	values := url.Values{}
	values.Set("vnp_Version", vnpVersion)
	values.Set("vnp_Command", vnpCommand)
	values.Set("vnp_TmnCode", s.cfg.TerminalCode)
	// VNPay expects the amount multiplied by 100.
	values.Set("vnp_Amount", fmt.Sprintf("%d", params.AmountVND*100))
	values.Set("vnp_CurrCode", vnpCurrency)
	values.Set("vnp_TxnRef", params.BookingRef.String())
	values.Set("vnp_OrderInfo", params.OrderInfo)
	values.Set("vnp_OrderType", "other")
	values.Set("vnp_Locale", vnpLocale)
	values.Set("vnp_ReturnUrl", returnURL)
	values.Set("vnp_IpAddr", params.ClientIP)
	values.Set("vnp_CreateDate", createdAt.Format(vnpDateLayout))
	values.Set("vnp_ExpireDate", expiresAt.Format(vnpDateLayout))

	query := canonicalQuery(values)
	signature := signVNPay(s.cfg.HashSecret, query)
	checkoutURL := fmt.Sprintf("%s?%s&vnp_SecureHash=%s", s.cfg.BaseURL, query, signature)

	s.logger.Info("vnpay payment link created",
		"booking_ref", params.BookingRef,
		"amount_vnd", params.AmountVND,
	)
	return &CheckoutResponse{
		URL:         checkoutURL,
		ProviderRef: "vnpay:" + params.BookingRef.String(),
	}, nil
}

// VerifyReturn validates the signature on a VNPay return redirect and reports
// whether the gateway marked the transaction successful.
func (s *VNPayService) VerifyReturn(query url.Values) (txnRef string, paid bool, err error) {
	received := query.Get("vnp_SecureHash")
	if received == "" {
		return "", false, fmt.Errorf("payments: vnpay return missing signature")
	}

	unsigned := url.Values{}
	for key, vals := range query {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		if len(vals) > 0 {
			unsigned.Set(key, vals[0])
		}
	}
	expected := signVNPay(s.cfg.HashSecret, canonicalQuery(unsigned))
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return "", false, fmt.Errorf("payments: vnpay return signature mismatch")
	}

	return query.Get("vnp_TxnRef"), query.Get("vnp_ResponseCode") == "00", nil
}

// canonicalQuery encodes parameters sorted by key, the order VNPay signs in.
func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(values.Get(key)))
	}
	return b.String()
}

func signVNPay(secret, payload string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Provider = (*VNPayService)(nil)
