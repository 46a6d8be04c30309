package domain

// AnonymousName is shown in place of the author of an anonymous post.
const AnonymousName = "Anonymous"

// User is a directory entry owned by the identity system.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	IsExpert bool   `json:"is_expert"`
}

// Author is the resolved presentation of a message author.
type Author struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// ResolveAuthor builds the displayed author. Anonymous posts hide the id.
func ResolveAuthor(authorID string, anonymous bool, names map[string]string) Author {
	if anonymous {
		return Author{Name: AnonymousName}
	}
	name := names[authorID]
	if name == "" {
		name = "Unknown"
	}
	return Author{ID: authorID, Name: name}
}
