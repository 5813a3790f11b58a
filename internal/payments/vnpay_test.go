package payments

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testVNPay(t *testing.T) *VNPayService {
	t.Helper()
	svc := NewVNPayService(VNPayConfig{
		TerminalCode: "KIDSVAX1",
		HashSecret:   "topsecret",
		BaseURL:      "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:    "https://clinic.example.com/payments/vnpay/return",
	}, nil)
	if svc == nil {
		t.Fatal("expected configured vnpay service")
	}
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestVNPayRequiresCredentials(t *testing.T) {
	if svc := NewVNPayService(VNPayConfig{TerminalCode: "X"}, nil); svc != nil {
		t.Error("expected nil service without hash secret")
	}
	if svc := NewVNPayService(VNPayConfig{HashSecret: "s"}, nil); svc != nil {
		t.Error("expected nil service without terminal code")
	}
}

func TestVNPayCreatePaymentLink(t *testing.T) {
	svc := testVNPay(t)
	bookingRef := uuid.New()

	resp, err := svc.CreatePaymentLink(context.Background(), CheckoutParams{
		BookingRef: bookingRef,
		ChildID:    uuid.New(),
		AmountVND:  795000,
		OrderInfo:  "Vaccination deposit",
		ClientIP:   "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("CreatePaymentLink: %v", err)
	}

	parsed, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("parse checkout url: %v", err)
	}
	query := parsed.Query()

	if got := query.Get("vnp_Amount"); got != "79500000" {
		t.Errorf("expected amount x100, got %q", got)
	}
	if got := query.Get("vnp_TxnRef"); got != bookingRef.String() {
		t.Errorf("expected booking ref as txn ref, got %q", got)
	}
	if got := query.Get("vnp_TmnCode"); got != "KIDSVAX1" {
		t.Errorf("expected terminal code, got %q", got)
	}
	if got := query.Get("vnp_CreateDate"); got != "20250401103000" {
		t.Errorf("unexpected create date %q", got)
	}
	if query.Get("vnp_SecureHash") == "" {
		t.Error("expected signed url")
	}
	if !strings.HasPrefix(resp.ProviderRef, "vnpay:") {
		t.Errorf("unexpected provider ref %q", resp.ProviderRef)
	}

	// The signature must cover the sorted remaining parameters.
	unsigned := url.Values{}
	for key, vals := range query {
		if key == "vnp_SecureHash" {
			continue
		}
		unsigned.Set(key, vals[0])
	}
	want := signVNPay("topsecret", canonicalQuery(unsigned))
	if query.Get("vnp_SecureHash") != want {
		t.Error("signature does not match canonical query")
	}
}

func TestVNPayCreatePaymentLinkValidation(t *testing.T) {
	svc := testVNPay(t)

	if _, err := svc.CreatePaymentLink(context.Background(), CheckoutParams{AmountVND: 1000}); err == nil {
		t.Error("expected error without booking ref")
	}
	if _, err := svc.CreatePaymentLink(context.Background(), CheckoutParams{BookingRef: uuid.New()}); err == nil {
		t.Error("expected error without positive amount")
	}
}

func TestVNPayVerifyReturn(t *testing.T) {
	svc := testVNPay(t)
	txnRef := uuid.NewString()

	values := url.Values{}
	values.Set("vnp_TxnRef", txnRef)
	values.Set("vnp_ResponseCode", "00")
	values.Set("vnp_Amount", "79500000")
	values.Set("vnp_SecureHash", signVNPay("topsecret", canonicalQuery(values)))

	got, paid, err := svc.VerifyReturn(values)
	if err != nil {
		t.Fatalf("VerifyReturn: %v", err)
	}
	if got != txnRef {
		t.Errorf("expected txn ref %q, got %q", txnRef, got)
	}
	if !paid {
		t.Error("response code 00 should report paid")
	}
}

func TestVNPayVerifyReturnFailedPayment(t *testing.T) {
	svc := testVNPay(t)

	values := url.Values{}
	values.Set("vnp_TxnRef", uuid.NewString())
	values.Set("vnp_ResponseCode", "24")
	values.Set("vnp_SecureHash", signVNPay("topsecret", canonicalQuery(values)))

	_, paid, err := svc.VerifyReturn(values)
	if err != nil {
		t.Fatalf("VerifyReturn: %v", err)
	}
	if paid {
		t.Error("non-zero response code must not report paid")
	}
}

func TestVNPayVerifyReturnTampered(t *testing.T) {
	svc := testVNPay(t)

	values := url.Values{}
	values.Set("vnp_TxnRef", uuid.NewString())
	values.Set("vnp_ResponseCode", "00")
	values.Set("vnp_SecureHash", signVNPay("topsecret", canonicalQuery(values)))
	values.Set("vnp_Amount", "100")

	if _, _, err := svc.VerifyReturn(values); err == nil {
		t.Error("expected signature mismatch for tampered query")
	}
}

func TestVNPayVerifyReturnMissingSignature(t *testing.T) {
	svc := testVNPay(t)
	if _, _, err := svc.VerifyReturn(url.Values{}); err == nil {
		t.Error("expected error for missing signature")
	}
}
