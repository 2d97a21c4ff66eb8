package identity

import (
	"strconv"
	"strings"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// DefaultNoreplyDomain is the domain of GitHub's generated commit emails
const DefaultNoreplyDomain = "users.noreply.github.com"

// NoreplyUser extracts the login from a GitHub noreply address, either
// "login@domain" or "12345+login@domain".
func NoreplyUser(email, domain string) (models.User, bool) {
	local, ok := strings.CutSuffix(email, "@"+domain)
	if !ok {
		return models.NoUser, false
	}

	if id, login, found := strings.Cut(local, "+"); found {
		if _, err := strconv.Atoi(id); err != nil {
			return models.NoUser, false
		}
		local = login
	}

	if local == "" || strings.Contains(local, "@") {
		return models.NoUser, false
	}
	return models.User(local), true
}
