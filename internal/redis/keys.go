package redis

import "fmt"

const ns = "staycore:v1"

func KeyRoom(roomID int64) string {
	return fmt.Sprintf("%s:room:%d", ns, roomID)
}

func KeyRoomOccupancy(roomID int64) string {
	return fmt.Sprintf("%s:room:%d:occupancy", ns, roomID)
}

// KeyRoomList keys a cached listing by the filter's CacheKey.
func KeyRoomList(filterKey string) string {
	return fmt.Sprintf("%s:rooms:%s", ns, filterKey)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyIdemBooking(idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s", ns, idemKey)
}

func ChannelRoomsChanged() string {
	return ns + ":rooms:changed"
}
