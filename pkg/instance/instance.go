package instance

import "github.com/angelmondragon/marketplace-cart/pkg/env"

// GetID returns the process instance identifier or a default value.
func GetID(fallback string) string {
	return env.First(fallback, "MARKETPLACE_INSTANCE_ID", "HOSTNAME")
}
