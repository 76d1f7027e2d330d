//go:build !race

package auth

// passwordHashCost is the bcrypt work factor used for stored credentials.
// 12 keeps offline brute force expensive while bounding login latency at the
// register; treat it as deployment-fixed configuration.
func passwordHashCost() int {
	return 12
}
