package workflow

import "errors"

// Error taxonomy for the approval pipeline. Handlers map these with
// errors.Is: validation and sequencing failures are client errors and
// never mutate state; ErrNoRouteChain is a configuration failure fatal
// to request creation.
var (
	ErrInvalidStatus    = errors.New("invalid decision status")
	ErrApprovalNotFound = errors.New("approval not found in pipeline")

	ErrWrongApprover = errors.New("approval is assigned to a different user")
	ErrWrongRole     = errors.New("acting role does not match the level's required role")
	ErrItemLocked    = errors.New("item was rejected by a different approver")

	ErrNotPending           = errors.New("approval has already been decided")
	ErrNotActive            = errors.New("approval is not the active level")
	ErrPreviousLevelPending = errors.New("a previous approval level is still pending")

	ErrNoRouteChain           = errors.New("no approval route chain defined for this type, domain and amount")
	ErrItemOverlayUnsupported = errors.New("item decisions are not applicable to this request type")
)
