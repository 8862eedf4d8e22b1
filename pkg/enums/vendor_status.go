package enums

// VendorStatus tracks a vendor application through moderation.
type VendorStatus string

const (
	VendorStatusPending   VendorStatus = "PENDING"
	VendorStatusActive    VendorStatus = "ACTIVE"
	VendorStatusSuspended VendorStatus = "SUSPENDED"
	VendorStatusRejected  VendorStatus = "REJECTED"
)

var validVendorStatuses = []VendorStatus{
	VendorStatusPending,
	VendorStatusActive,
	VendorStatusSuspended,
	VendorStatusRejected,
}

var vendorTransitions = map[VendorStatus][]VendorStatus{
	VendorStatusPending:   {VendorStatusActive, VendorStatusRejected},
	VendorStatusActive:    {VendorStatusSuspended},
	VendorStatusSuspended: {VendorStatusActive},
}

// String implements fmt.Stringer.
func (s VendorStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known VendorStatus.
func (s VendorStatus) IsValid() bool {
	return contains(validVendorStatuses, s)
}

// CanTransitionTo reports whether moderation may move a vendor from s to next.
func (s VendorStatus) CanTransitionTo(next VendorStatus) bool {
	return contains(vendorTransitions[s], next)
}

// ParseVendorStatus converts raw input into a VendorStatus.
func ParseVendorStatus(value string) (VendorStatus, error) {
	return parse(validVendorStatuses, value, "vendor status")
}
