package domain

import "errors"

var (
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomNotFound  = errors.New("room not found")
	ErrAlreadyMember = errors.New("client already in the room")
)
