package protocol

// Reject codes attached to dropped inbound frames in logs and metrics.
const (
	// Framing/validation.
	ErrProtoBadFrame   = "E_PROTO_BAD_FRAME"
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrUnknownEvent    = "E_UNKNOWN_EVENT"

	// Session lifecycle.
	ErrNotLoggedIn     = "E_NOT_LOGGED_IN"
	ErrAlreadyLoggedIn = "E_ALREADY_LOGGED_IN"

	// World routing.
	ErrWorldBusy = "E_WORLD_BUSY"
	ErrInternal  = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadFrame:   {},
	ErrProtoBadRequest: {},
	ErrUnknownEvent:    {},
	ErrNotLoggedIn:     {},
	ErrAlreadyLoggedIn: {},
	ErrWorldBusy:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// KnownCodes returns every reject code, in declaration order.
func KnownCodes() []string {
	return []string{
		ErrProtoBadFrame,
		ErrProtoBadRequest,
		ErrUnknownEvent,
		ErrNotLoggedIn,
		ErrAlreadyLoggedIn,
		ErrWorldBusy,
		ErrInternal,
	}
}
