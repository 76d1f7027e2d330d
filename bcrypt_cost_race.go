//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// Race-enabled builds run bcrypt an order of magnitude slower, which pushes
// login tests past their timeouts at the production work factor.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
