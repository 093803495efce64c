package common

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session"

// DefaultListLimit is used by listing endpoints when no limit is given.
const DefaultListLimit = 30
