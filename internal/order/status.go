package order

type Status string

const (
	StatusProcessing Status = "Processing"
	StatusHolding    Status = "Holding"
	StatusShipping   Status = "Shipping"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusHolding, StatusShipping, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further changes.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type CancelReason string

const (
	ReasonOutOfStock      CancelReason = "out_of_stock"
	ReasonCustomerRequest CancelReason = "customer_request"
	ReasonDamagedItem     CancelReason = "damaged_item"
	ReasonPaymentFailed   CancelReason = "payment_failed"
	ReasonOther           CancelReason = "other"
)

func (r CancelReason) Valid() bool {
	switch r {
	case ReasonOutOfStock, ReasonCustomerRequest, ReasonDamagedItem, ReasonPaymentFailed, ReasonOther:
		return true
	}
	return false
}

// StatusChange is a requested status. Only the Cancelled variant carries a
// reason, and it always does.
type StatusChange struct {
	status Status
	reason CancelReason
}

func NewStatusChange(status Status, reason CancelReason) (StatusChange, error) {
	if !status.Valid() {
		return StatusChange{}, ErrInvalidStatus
	}

	if status == StatusCancelled {
		if reason == "" {
			return StatusChange{}, ErrReasonRequired
		}
		if !reason.Valid() {
			return StatusChange{}, ErrInvalidReason
		}
		return StatusChange{status: status, reason: reason}, nil
	}

	if reason != "" {
		return StatusChange{}, ErrReasonNotAllowed
	}
	return StatusChange{status: status}, nil
}

func (c StatusChange) Status() Status { return c.status }

func (c StatusChange) Reason() (CancelReason, bool) {
	return c.reason, c.status == StatusCancelled
}

// ValidateTransition allows any change out of a non-terminal status.
func ValidateTransition(from Status, change StatusChange) error {
	if !change.status.Valid() {
		return ErrInvalidStatus
	}
	if from.Terminal() {
		return ErrInvalidTransition
	}
	return nil
}
