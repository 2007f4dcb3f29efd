package config

import "time"

const (
	// Cache
	DefaultKeepUnusedFor = 60 * time.Second

	// Sessions
	DefaultSessionIdleTTL = 30 * time.Minute
	ReapInterval          = time.Minute

	// Redis
	InvalidationChannel = "collegemate:invalidations"

	// Mutation log
	DefaultMutationListLimit = 50
	MaxMutationListLimit     = 500

	// HTTP
	ReadTimeout    = 15 * time.Second
	WriteTimeout   = 60 * time.Second
	MaxHeaderBytes = 1 << 20
	MaxUploadBytes = 10 << 20
)

// DomainTags maps a domain the bot can watch to the cache tag type that
// announces a change in it. Complaints are per user and the bot reads through
// one shared account, so they are not watchable.
var DomainTags = map[string]string{
	"items":      "LostFound",
	"placements": "Placements",
}
