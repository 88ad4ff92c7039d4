package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated    = "order.created"
	TopicVoucherClaimed  = "voucher.claimed"
	TopicVoucherRedeemed = "voucher.redeemed"
)
