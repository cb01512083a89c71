package receipt

import (
	"regexp"
	"strings"
)

// sensitiveFlags are flag names whose values are always redacted.
var sensitiveFlags = map[string]bool{
	"ssn":      true,
	"tin":      true,
	"ein":      true,
	"itin":     true,
	"account":  true,
	"routing":  true,
	"password": true,
	"token":    true,
	"dsn":      true,
}

// sensitiveKeys are data keys (in --set key=value pairs) redacted the same way.
var sensitiveKeys = map[string]bool{
	"ssn":            true,
	"tin":            true,
	"ein":            true,
	"itin":           true,
	"tax_id":         true,
	"account_number": true,
	"routing_number": true,
	"date_of_birth":  true,
	"dob":            true,
}

var (
	ssnRegex     = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	einRegex     = regexp.MustCompile(`\b\d{2}-\d{7}\b`)
	accountRegex = regexp.MustCompile(`\b\d{9,17}\b`)
	// credentials embedded in a DSN or URL
	userinfoRegex = regexp.MustCompile(`(://[^:/@\s]+:)[^@\s]+@`)
)

const redactedValue = "[REDACTED]"

// RedactArgs masks identifiers (SSNs, EINs, account numbers) and the values
// of sensitive flags or data keys. Returns the redacted args and whether any
// change was made.
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	redacted := make([]string, len(args))
	wasRedacted := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// --flag=value
		if strings.HasPrefix(arg, "-") {
			if eqIdx := strings.Index(arg, "="); eqIdx > 0 {
				if isSensitiveFlag(extractFlagName(arg[:eqIdx])) {
					redacted[i] = arg[:eqIdx+1] + redactedValue
					wasRedacted = true
					continue
				}
			} else if isSensitiveFlag(extractFlagName(arg)) && i+1 < len(args) {
				// --flag value
				redacted[i] = arg
				i++
				redacted[i] = redactedValue
				wasRedacted = true
				continue
			}
		}

		// key=value data pair
		if eqIdx := strings.Index(arg, "="); eqIdx > 0 && !strings.HasPrefix(arg, "-") {
			if sensitiveKeys[strings.ToLower(arg[:eqIdx])] {
				redacted[i] = arg[:eqIdx+1] + redactedValue
				wasRedacted = true
				continue
			}
		}

		out := RedactText(arg)
		if out != arg {
			wasRedacted = true
		}
		redacted[i] = out
	}

	return redacted, wasRedacted
}

// RedactText masks identifier patterns inside free text.
func RedactText(s string) string {
	s = userinfoRegex.ReplaceAllString(s, "${1}"+redactedValue+"@")
	s = ssnRegex.ReplaceAllString(s, redactedValue)
	s = einRegex.ReplaceAllString(s, redactedValue)
	return accountRegex.ReplaceAllString(s, redactedValue)
}

// extractFlagName removes leading dashes and returns the flag name.
func extractFlagName(s string) string {
	s = strings.TrimPrefix(s, "--")
	s = strings.TrimPrefix(s, "-")
	return strings.ToLower(s)
}

func isSensitiveFlag(flag string) bool {
	return sensitiveFlags[flag]
}
