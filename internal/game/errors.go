package game

import "errors"

// Validation errors returned by table and hand operations. Handlers map
// these onto HTTP status codes, so they stay sentinel values.
var (
	ErrNotEnoughPlayers  = errors.New("game: need at least two players with chips")
	ErrHandInProgress    = errors.New("game: hand already in progress")
	ErrNoActiveHand      = errors.New("game: no active hand")
	ErrHandNotActionable = errors.New("game: hand is not in a betting round")
	ErrNotYourTurn       = errors.New("game: not this seat's turn")
	ErrSeatOutOfRange    = errors.New("game: seat number out of range")
	ErrSeatOccupied      = errors.New("game: seat already occupied")
	ErrSeatEmpty         = errors.New("game: seat is empty")
	ErrTableFull         = errors.New("game: no open seats")
	ErrBuyInOutOfRange   = errors.New("game: buy-in outside table limits")
	ErrAlreadySeated     = errors.New("game: agent already seated at this table")
	ErrCannotCheck       = errors.New("game: cannot check facing a bet")
	ErrNothingToCall     = errors.New("game: no bet to call")
	ErrBetAlreadyOpen    = errors.New("game: bet already open, raise instead")
	ErrNoBetToRaise      = errors.New("game: no bet to raise, bet instead")
	ErrBetTooSmall       = errors.New("game: bet below big blind")
	ErrRaiseTooSmall     = errors.New("game: raise below minimum")
	ErrRaiseNotReopened  = errors.New("game: betting not reopened, call or fold")
	ErrNotInShowdown     = errors.New("game: hand has not reached showdown")
	ErrInsufficientChips = errors.New("game: not enough chips")
	ErrRebuyDuringHand   = errors.New("game: rebuy only allowed between hands")
	ErrRebuyAboveMax     = errors.New("game: rebuy would exceed table maximum")
	ErrUnknownAction     = errors.New("game: unknown action")
)
