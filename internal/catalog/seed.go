// internal/catalog/seed.go
package catalog

// SeedItems returns the demo catalogue: 5 fiction, 5 non-fiction, 3 magazines,
// 3 movies and 4 video games, numbered from 1. Every item starts available.
func SeedItems() []Item {
	entries := []struct {
		title   string
		creator string
		details Details
	}{
		{"The Wind Road", "J. Harper", FictionDetails{}},
		{"Night Harbor", "A. Singh", FictionDetails{}},
		{"Echoes", "L. Chen", FictionDetails{}},
		{"Summer Glass", "M. Ortega", FictionDetails{}},
		{"Hidden Leaves", "R. Patel", FictionDetails{}},

		{"Quantum Basics", "S. Rao", NonFictionDetails{Dewey: "530.12"}},
		{"The Brain Map", "N. Ahmed", NonFictionDetails{Dewey: "612.82"}},
		{"Design Matters", "P. Nguyen", NonFictionDetails{Dewey: "745.4"}},
		{"Civic Algorithms", "K. Okafor", NonFictionDetails{Dewey: "303.38"}},
		{"Kitchen Chemistry", "D. Rossi", NonFictionDetails{Dewey: "540.1"}},

		{"Tech Monthly", "Editorial Board", MagazineDetails{Issue: "Issue 142", PubDate: "2025-10"}},
		{"Nature & You", "Editorial Board", MagazineDetails{Issue: "Issue 88", PubDate: "2025-09"}},
		{"Cinema Now", "Editorial Board", MagazineDetails{Issue: "Issue 23", PubDate: "2025-11"}},

		{"Northern Lights", "K. Yamamoto", MovieDetails{Genre: "Drama", Rating: "PG-13"}},
		{"Edge Protocol", "R. Coleman", MovieDetails{Genre: "Sci-Fi", Rating: "PG-13"}},
		{"Riverfront", "M. Da Silva", MovieDetails{Genre: "Documentary", Rating: "G"}},

		{"Skyforge", "BlueFox Studio", VideoGameDetails{Genre: "Adventure", Rating: "E10+"}},
		{"Circuit Clash", "ArcByte", VideoGameDetails{Genre: "Action", Rating: "T"}},
		{"Farmstead 2049", "Sunseed", VideoGameDetails{Genre: "Simulation", Rating: "E"}},
		{"Starlane", "Nova North", VideoGameDetails{Genre: "Strategy", Rating: "E10+"}},
	}

	items := make([]Item, 0, len(entries))
	for i, e := range entries {
		items = append(items, Item{
			ID:      i + 1,
			Title:   e.title,
			Creator: e.creator,
			Details: e.details,
		})
	}
	return items
}
