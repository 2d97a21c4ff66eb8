package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

func TestNoreplyUser(t *testing.T) {
	tests := []struct {
		email string
		user  models.User
		ok    bool
	}{
		{"12345+alice@users.noreply.github.com", "alice", true},
		{"alice@users.noreply.github.com", "alice", true},
		{"miss-islington@users.noreply.github.com", "miss-islington", true},
		{"abc+alice@users.noreply.github.com", "", false},
		{"@users.noreply.github.com", "", false},
		{"alice@example.com", "", false},
		{"alice@users.noreply.github.com.evil.org", "", false},
		{"no-at-sign", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			user, ok := NoreplyUser(tt.email, DefaultNoreplyDomain)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.user, user)
		})
	}
}
