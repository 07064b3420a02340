package models

// UserRecord is a row of the users table after blank-filling.
// Field order matches the users.csv header: id, name, address, phone, email
type UserRecord struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Address string `json:"address" db:"address"`
	Phone   string `json:"phone" db:"phone"`
	Email   string `json:"email" db:"email"`
}

// Identity returns the identifying attributes of the user
func (u UserRecord) Identity() Identity {
	return Identity{
		Email:   u.Email,
		Phone:   u.Phone,
		Address: u.Address,
		Name:    u.Name,
	}
}

// Identity is the set of attributes used to link order rows to the same person
type Identity struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Get returns the attribute for a field name (email, phone, address, name)
func (i Identity) Get(field string) string {
	switch field {
	case "email":
		return i.Email
	case "phone":
		return i.Phone
	case "address":
		return i.Address
	case "name":
		return i.Name
	}
	return ""
}
