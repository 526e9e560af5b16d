package domain

// RoomID is the interview session identifier minted outside the relay.
// Rooms have no lifecycle of their own; the id is only a grouping key.
type RoomID string
