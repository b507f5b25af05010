package synclog

import "regexp"

// credentialPatterns match credentials that transport errors may echo back.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)[^\s"']+`),
	regexp.MustCompile(`(?i)((?:token|access_token|api_key)=)[^&\s"']+`),
}

// Redact masks credentials in a free-form detail string before it is stored.
func Redact(detail string) string {
	for _, re := range credentialPatterns {
		detail = re.ReplaceAllString(detail, "${1}<redacted>")
	}
	return detail
}
