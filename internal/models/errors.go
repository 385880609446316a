package models

// UserError is a client-side precondition failure whose text is shown to the
// user verbatim (no user signed in, no address selected, stale snapshot).
type UserError string

func (e UserError) Error() string { return string(e) }
