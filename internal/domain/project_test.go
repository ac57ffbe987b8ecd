package domain

import "testing"

func TestSlugID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "deckhand", want: "deckhand"},
		{name: "uppercase", input: "Deckhand", want: "deckhand"},
		{name: "spaces", input: "My Project", want: "my-project"},
		{name: "symbol runs collapse", input: "API -- v2!", want: "api-v2"},
		{name: "underscores", input: "hello_world", want: "hello-world"},
		{name: "leading and trailing junk", input: "  .name.  ", want: "name"},
		{name: "digits kept", input: "web3", want: "web3"},
		{name: "only symbols", input: "---", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SlugID(tt.input)
			if got != tt.want {
				t.Errorf("SlugID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUniqueSlugID(t *testing.T) {
	taken := func(ids ...string) func(string) bool {
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		return func(id string) bool { return set[id] }
	}

	tests := []struct {
		name    string
		project string
		taken   func(string) bool
		want    string
	}{
		{name: "no collision", project: "My Project", taken: taken(), want: "my-project"},
		{name: "one collision", project: "My Project", taken: taken("my-project"), want: "my-project-2"},
		{name: "two collisions", project: "My Project", taken: taken("my-project", "my-project-2"), want: "my-project-3"},
		{name: "empty name falls back", project: "", taken: taken(), want: "project"},
		{name: "empty name collision", project: "!!!", taken: taken("project"), want: "project-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UniqueSlugID(tt.project, tt.taken)
			if got != tt.want {
				t.Errorf("UniqueSlugID(%q) = %q, want %q", tt.project, got, tt.want)
			}
		})
	}
}
