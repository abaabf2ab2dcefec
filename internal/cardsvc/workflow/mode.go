package workflow

// Mode is the terminal's view state. Modes are mutually exclusive; the
// session owns the single current value and every transition goes
// through a session method.
type Mode int

const (
	// ModeRead is the initial state: waiting for a card to be scanned.
	ModeRead Mode = iota
	// ModeList shows the organization's active cards.
	ModeList
	// ModeAssign holds a scanned card waiting for a customer choice.
	ModeAssign
	// ModeReassignConfirm asks the operator to confirm re-pointing a
	// card that is already linked to a customer.
	ModeReassignConfirm
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeList:
		return "list"
	case ModeAssign:
		return "assign"
	case ModeReassignConfirm:
		return "reassign-confirm"
	}
	return "unknown"
}
