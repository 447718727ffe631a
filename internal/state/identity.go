package state

import "os/user"

// Identity picks the username used to select per-user secrets: the saved
// user, then $USER, then $USERNAME, then the account running lade. It returns
// "" when none is known.
func Identity(st *State, getenv func(string) string) string {
	if st != nil && st.User != "" {
		return st.User
	}
	for _, name := range []string{"USER", "USERNAME"} {
		if v := getenv(name); v != "" {
			return v
		}
	}
	if u, err := currentUser(); err == nil {
		return u.Username
	}
	return ""
}

var currentUser = user.Current
