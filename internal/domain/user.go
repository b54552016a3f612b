package domain

import "strings"

// User is a participant of the world session.
type User struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	IsGM   bool   `json:"isGM" yaml:"isGM"`
	Active bool   `json:"active" yaml:"active"`
}

// NewUser constructs a User, enforcing that an identifier is present.
func NewUser(id, name string, isGM, active bool) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, invalidUserError("user id is required")
	}
	return User{ID: id, Name: name, IsGM: isGM, Active: active}, nil
}

// GMIDs returns the identifiers of every GM, active or not.
func GMIDs(users []User) []string {
	var ids []string
	for _, u := range users {
		if u.IsGM {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// FindUser looks up a user by identifier.
func FindUser(users []User, id string) (User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
