// internal/membership/seed.go
package membership

// SeedUsers returns the demo roster: five patrons, one librarian and one admin.
func SeedUsers() []User {
	return []User{
		{Name: "Alice", Role: RolePatron},
		{Name: "Bob", Role: RolePatron},
		{Name: "Carmen", Role: RolePatron},
		{Name: "Dev", Role: RolePatron},
		{Name: "Eve", Role: RolePatron},
		{Name: "Librarian", Role: RoleLibrarian},
		{Name: "Admin", Role: RoleAdmin},
	}
}
