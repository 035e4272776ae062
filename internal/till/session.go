package till

import (
	"bakery-pos/internal/models"
	"bakery-pos/internal/till/store"
)

// LoadUser returns the signed in staff member saved on this device, or nil
func LoadUser(s store.Store) (*models.Staff, error) {
	var u models.Staff
	ok, err := store.Load(s, store.KeyUser, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// SaveUser remembers u as the signed in staff member
func SaveUser(s store.Store, u *models.Staff) error {
	return store.Save(s, store.KeyUser, u)
}

// ClearUser forgets the signed in staff member
func ClearUser(s store.Store) error {
	return s.Delete(store.KeyUser)
}
