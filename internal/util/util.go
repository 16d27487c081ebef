package util

import "strings"

// MaskToken obscures a credential for logging, showing only the first
// and last few characters.
func MaskToken(token string) string {
	if len(token) > 8 {
		return token[:4] + "..." + token[len(token)-4:]
	} else if len(token) > 4 {
		return token[:2] + "..." + token[len(token)-2:]
	} else if len(token) > 2 {
		return token[:1] + "..." + token[len(token)-1:]
	}
	return token
}

// MaskEmail obscures the local part of an email address for logging.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return MaskToken(email)
	}
	return MaskToken(email[:at]) + email[at:]
}
