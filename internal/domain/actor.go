package domain

// Actor is the identity on whose behalf an operation runs. Every service
// call receives it explicitly.
type Actor struct {
	UserID int64
	Admin  bool
}

func (a Actor) Is(userID int64) bool {
	return a.UserID != 0 && a.UserID == userID
}
