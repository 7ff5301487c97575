package redis

import "fmt"

const ns = "atelier:v1"

func KeyPublicSlots() string {
	return ns + ":slots:public"
}

func KeyPublicWorkshops() string {
	return ns + ":workshops:public"
}

func KeyApprovedReviews() string {
	return ns + ":reviews:approved"
}

// KeyGeneration counts invalidations of a cached key.
func KeyGeneration(key string) string {
	return key + ":gen"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyLock(name string) string {
	return fmt.Sprintf("%s:lock:%s", ns, name)
}

func KeyIdem(scope, idemKey string) string {
	return fmt.Sprintf("%s:idem:%s:%s", ns, scope, idemKey)
}

func ChannelChanges() string {
	return ns + ":changes"
}
