package pricing

// CheckoutTotal is the final order arithmetic presented to payment.
type CheckoutTotal struct {
	Subtotal        Money `json:"subtotal"`
	ShippingFee     Money `json:"shippingFee"`
	VoucherDiscount Money `json:"voucherDiscount"`
	GrandTotal      Money `json:"grandTotal"`
}

// Total composes subtotal, shipping fee and voucher discount into the
// payable amount. It is the only place this arithmetic lives; the grand
// total is clamped at zero so a stacked discount configuration can never
// produce a negative charge.
func Total(subtotal, shippingFee, voucherDiscount Money) CheckoutTotal {
	if subtotal < 0 {
		subtotal = 0
	}
	if shippingFee < 0 {
		shippingFee = 0
	}
	if voucherDiscount < 0 {
		voucherDiscount = 0
	}
	grand := subtotal + shippingFee - voucherDiscount
	if grand < 0 {
		grand = 0
	}
	return CheckoutTotal{
		Subtotal:        subtotal,
		ShippingFee:     shippingFee,
		VoucherDiscount: voucherDiscount,
		GrandTotal:      grand,
	}
}
