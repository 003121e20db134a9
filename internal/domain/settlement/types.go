package settlement

// EntityType identifies the kind of marketplace participant a schedule
// settles with
type EntityType string

const (
	EntityTypePharmacy EntityType = "PHARMACY"
	EntityTypeVendor   EntityType = "VENDOR"
	EntityTypeDoctor   EntityType = "DOCTOR"
)

// IsValid checks if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypePharmacy, EntityTypeVendor, EntityTypeDoctor:
		return true
	}
	return false
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}

// ScheduleType distinguishes money collected by the platform from money
// paid out by it
type ScheduleType string

const (
	// ScheduleTypeCollection is commission owed to the platform by a
	// pharmacy or vendor
	ScheduleTypeCollection ScheduleType = "COLLECTION"
	// ScheduleTypePayout is referral commission owed by the platform to
	// a doctor
	ScheduleTypePayout ScheduleType = "PAYOUT"
)

// IsValid checks if the schedule type is valid
func (t ScheduleType) IsValid() bool {
	return t == ScheduleTypeCollection || t == ScheduleTypePayout
}

// String returns the string representation of ScheduleType
func (t ScheduleType) String() string {
	return string(t)
}

// PaymentMethod represents the rail used to move the money
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodWallet       PaymentMethod = "WALLET"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodUPI, PaymentMethodWallet, PaymentMethodCheque:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}
