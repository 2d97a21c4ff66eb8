package gitwalk

import (
	"net/mail"
	"regexp"
	"strings"
)

var coAuthorRe = regexp.MustCompile(`(?i)^\s*(?:Co-authored-by:|Authored-by:) (?:[^<]+ )?<(?P<email>.+)>$`)

// AuthorEmail extracts the address from a "Name <email>" author string
func AuthorEmail(author string) string {
	author = strings.ReplaceAll(author, ",", " ")
	if addr, err := mail.ParseAddress(author); err == nil {
		return addr.Address
	}

	if start := strings.LastIndex(author, "<"); start >= 0 {
		if end := strings.Index(author[start:], ">"); end > 0 {
			return strings.TrimSpace(author[start+1 : start+end])
		}
	}
	return strings.TrimSpace(author)
}

// CoAuthorEmails returns the addresses of Co-authored-by and Authored-by trailers
func CoAuthorEmails(message string) []string {
	var emails []string
	for _, line := range strings.Split(message, "\n") {
		m := coAuthorRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		emails = append(emails, m[coAuthorRe.SubexpIndex("email")])
	}
	return emails
}

// summary is the first line of a commit message, cut to n runes
func summary(message string, n int) string {
	line, _, _ := strings.Cut(message, "\n")
	runes := []rune(line)
	if len(runes) > n {
		return string(runes[:n])
	}
	return line
}
