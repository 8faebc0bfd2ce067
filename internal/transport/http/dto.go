package http

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomItem struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

type RoomsListResponse struct {
	Items []RoomItem `json:"items"`
}

type MemberItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MembersResponse struct {
	Room  string       `json:"room"`
	Items []MemberItem `json:"items"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Rooms   int    `json:"rooms"`
	Members int    `json:"members"`
}
