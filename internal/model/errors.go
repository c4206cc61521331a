package model

import "github.com/rotisserie/eris"

// Sentinel errors shared across services. Compare with errors.Is.
var (
	ErrNotFound          = eris.New("not found")
	ErrValidation        = eris.New("validation failed")
	ErrForbidden         = eris.New("not permitted for this user")
	ErrInvalidStatus     = eris.New("unknown status")
	ErrInvalidTransition = eris.New("status transition not allowed")
	ErrListPriceRequired = eris.New("list price is required once a listing leaves draft")
	ErrDeleteBlocked     = eris.New("listing cannot be deleted while active or under contract")
	ErrNotEditable       = eris.New("listing can no longer be edited")
	ErrListingNotActive  = eris.New("listing is not accepting offers")
	ErrOfferClosed       = eris.New("offer is no longer open")
)
