package domain

// RoomInfo is a point-in-time view of one room.
type RoomInfo struct {
	Name    string
	Members int
}

// Stats is a point-in-time view of the whole registry.
type Stats struct {
	Rooms   int
	Members int
}
