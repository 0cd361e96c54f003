package redis

import "github.com/MrSnakeDoc/newsdesk/internal/domain"

const (
	// KeyPrefixCollection is the prefix for moderation collection keys
	KeyPrefixCollection = "newsdesk:collection:"
	// KeySeen is the set of every fingerprint ever admitted
	KeySeen = "newsdesk:seen"
	// KeyFeed holds the public feed document
	KeyFeed = "newsdesk:feed"
	// KeyLastCycle holds the summary of the latest collection cycle
	KeyLastCycle = "newsdesk:scheduler:last_cycle"
)

// CollectionKey returns the Redis key for a moderation collection
func CollectionKey(c domain.Collection) string {
	return KeyPrefixCollection + string(c)
}
