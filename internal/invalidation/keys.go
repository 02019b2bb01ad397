package invalidation

import "fmt"

// Canonical cache keys. Server and clients must build keys through these
// helpers; string-literal keys at call sites are how invalidations get
// missed.
const (
	// KeyEverything invalidates every cached entry. Used on reconnect and
	// as the degraded resolution for unregistered scenarios.
	KeyEverything = "*"

	KeyAllEntities = "entities"
)

func KeyEntity(entityID string) string {
	return fmt.Sprintf("entity:%s", entityID)
}

func KeyEntitiesByTenant(tenant string) string {
	return fmt.Sprintf("entities:tenant:%s", tenant)
}

func KeyTasksByDag(dagID string) string {
	return fmt.Sprintf("tasks:dag:%s", dagID)
}

func KeyDashboardByTenant(tenant string) string {
	return fmt.Sprintf("dashboard:tenant:%s", tenant)
}

func KeyDashboardByTeam(teamID string) string {
	return fmt.Sprintf("dashboard:team:%s", teamID)
}

func KeyNotificationsByEntity(entityID string) string {
	return fmt.Sprintf("notifications:entity:%s", entityID)
}

// Affects reports whether an invalidated key hits a cached key.
func Affects(affectedKey, cacheKey string) bool {
	return affectedKey == KeyEverything || affectedKey == cacheKey
}
