package discovery

// IsOfInterest decides whether self should react to env. It applies to ping
// and broadcast alike; the first matching rule wins.
func IsOfInterest(env *Envelope, self Identity) bool {
	// Never react to our own datagrams (broadcasts loop back).
	if env.From == self.ID {
		return false
	}
	if len(env.Filter) == 0 {
		return true
	}
	// A node without a role considers itself addressed by every filter.
	if !self.HasRole() {
		return true
	}
	for _, role := range env.Filter {
		if role == self.Role {
			return true
		}
	}
	return false
}
