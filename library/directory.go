package library

import "fmt"

// Directory is the user registry keyed by user ID.
type Directory struct {
	users map[string]*User
	order []string
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]*User)}
}

// Register creates a user of the given class. The ID must be unused.
func (d *Directory) Register(name, email, userID string, class UserClass) (User, error) {
	if _, ok := d.users[userID]; ok {
		return User{}, newError(KindDuplicateUser, fmt.Sprintf("User %s already exists.", userID))
	}
	if !class.Valid() {
		return User{}, newError(KindInvalidUserClass, "Invalid user type.")
	}
	u := &User{ID: userID, Name: name, Email: email, Class: class, Borrowed: []string{}}
	d.users[userID] = u
	d.order = append(d.order, userID)
	return u.clone(), nil
}

func (d *Directory) Find(userID string) (User, bool) {
	u, ok := d.users[userID]
	if !ok {
		return User{}, false
	}
	return u.clone(), true
}

// All returns every user in registration order.
func (d *Directory) All() []User {
	res := make([]User, 0, len(d.order))
	for _, id := range d.order {
		res = append(res, d.users[id].clone())
	}
	return res
}

func (d *Directory) Len() int { return len(d.order) }

func (d *Directory) lookup(userID string) *User { return d.users[userID] }
