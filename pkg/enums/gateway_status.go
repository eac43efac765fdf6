package enums

// GatewayStatus is the payment gateway's own status vocabulary as delivered
// in asynchronous notifications. Anything outside the known set is treated
// as still pending rather than rejected.
type GatewayStatus string

const (
	GatewayStatusApproved   GatewayStatus = "approved"
	GatewayStatusRejected   GatewayStatus = "rejected"
	GatewayStatusInProcess  GatewayStatus = "in_process"
	GatewayStatusChargeback GatewayStatus = "charged_back"
)

// String implements fmt.Stringer.
func (g GatewayStatus) String() string {
	return string(g)
}

// ToPaymentStatus maps the gateway vocabulary onto the internal payment axis.
func (g GatewayStatus) ToPaymentStatus() PaymentStatus {
	switch g {
	case GatewayStatusApproved:
		return PaymentStatusPaid
	case GatewayStatusRejected:
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}
