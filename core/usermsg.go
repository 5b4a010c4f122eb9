package core

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// Fixed sentences for the variants whose detail must never reach the user
// verbatim.
const (
	msgInvalidEndpoint   = "Could not connect to the service. Please check the configuration."
	msgTransportFailure  = "Could not connect to the network. Please check your internet connection and try again."
	msgMalformedResponse = "Received an unexpected response from the server."
	msgDecodingFailure   = "Could not understand the response from the server."
	msgUnauthorized      = "Authentication failed. Please log out and log back in."
	msgCheckInput        = "Please check the information you entered and try again."
	msgUnknown           = "An unknown error occurred."
)

// Technical prefixes the pipeline and call sites attach to domain errors.
// They are stripped before text is shown to a user.
var technicalPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Error: `),
	regexp.MustCompile(`(?i)^Server Error \(\d+\): `),
	regexp.MustCompile(`(?i)^Server returned status code \d+: `),
	regexp.MustCompile(`(?i)^Login Error: `),
	regexp.MustCompile(`(?i)^Validation Error: `),
	regexp.MustCompile(`(?i)^Failed to save note: `),
}

// UserMessage maps any error to a short sentence safe to show to an end
// user. Domain errors are the only variant whose server-provided text may
// pass through, after prefix stripping; every other variant maps to a
// fixed sentence.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var re *RequestError
	if !errors.As(err, &re) {
		return msgUnknown
	}
	switch re.Code {
	case ErrInvalidEndpoint:
		return msgInvalidEndpoint
	case ErrTransportFailure:
		return msgTransportFailure
	case ErrMalformedResponse:
		return msgMalformedResponse
	case ErrDecodingFailure:
		return msgDecodingFailure
	case ErrUnauthorized:
		return msgUnauthorized
	case ErrDomain:
		return friendlyDomainMessage(re.Message)
	default:
		return msgUnknown
	}
}

func friendlyDomainMessage(message string) string {
	trimmed := strings.TrimSpace(message)
	// A raw structured-validation payload is replaced wholesale rather
	// than echoed to the user.
	if strings.HasPrefix(trimmed, `{"detail":[`) {
		return msgCheckInput
	}
	for _, prefix := range technicalPrefixes {
		if loc := prefix.FindStringIndex(message); loc != nil {
			rest := strings.TrimSpace(message[loc[1]:])
			return capitalize(rest)
		}
	}
	if trimmed == "" {
		return msgUnknown
	}
	return trimmed
}

func capitalize(s string) string {
	if s == "" {
		return msgUnknown
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
