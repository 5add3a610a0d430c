package widget

import "errors"

var (
	ErrNotReady          = errors.New("widget: business profile not loaded")
	ErrNotOpen           = errors.New("widget: widget is closed")
	ErrInputBlocked      = errors.New("widget: input is blocked by an overlay")
	ErrBusy              = errors.New("widget: a message is already being sent")
	ErrNoOverlay         = errors.New("widget: overlay is not shown")
	ErrNoSuchOption      = errors.New("widget: no such option")
	ErrInvalidAttachment = errors.New("widget: invalid attachment")
	ErrLeadFieldRequired = errors.New("widget: required field is empty")
	ErrInvalidEmail      = errors.New("widget: invalid email address")
)
