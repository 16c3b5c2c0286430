package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxFactLogLength is the maximum length of fact or message text in log fields
	MaxFactLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Slack bot/user/app tokens: xoxb-..., xoxp-..., xapp-...
	slackTokenPattern = regexp.MustCompile(`\b(xox[abposr]|xapp)-[A-Za-z0-9-]+`)

	// GitHub classic and fine-grained tokens
	githubTokenPattern = regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{16,}|github_pat_[A-Za-z0-9_]{16,})`)

	// LLM provider keys (Anthropic sk-ant-..., OpenAI sk-...)
	llmKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`)

	// Bearer tokens in echoed request headers
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/=-]+`)

	// Pattern to match potential passwords in connection strings
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// Sanitize removes credentials from free text before it is logged.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}

	sanitized := slackTokenPattern.ReplaceAllString(s, RedactedText)
	sanitized = githubTokenPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = llmKeyPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging errors returned by Slack, GitHub or LLM clients.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// SanitizeConnectionString removes credentials from a database URL.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// TruncateString truncates a string to maxLen bytes without splitting a
// UTF-8 sequence, and adds an ellipsis if anything was cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// TruncateFact shortens chat text for structured log fields.
func TruncateFact(s string) string {
	return TruncateString(s, MaxFactLogLength)
}
