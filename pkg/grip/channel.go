package grip

// Channel identifies a subscription target, optionally carrying the ID of
// the last message the subscriber has seen so the proxy can recover any gap.
type Channel struct {
	Name   string
	PrevID string
}

// NewChannel creates a channel with no resume cursor.
func NewChannel(name string) Channel {
	return Channel{Name: name}
}

// WithPrefix returns a copy of the channel with prefix prepended to its
// name. The receiver is not mutated; the cursor is preserved.
func (c Channel) WithPrefix(prefix string) Channel {
	if prefix == "" {
		return c
	}
	return Channel{Name: prefix + c.Name, PrevID: c.PrevID}
}

// headerValue renders the channel in Grip-Channel header grammar.
func (c Channel) headerValue() string {
	if c.PrevID == "" {
		return c.Name
	}
	return c.Name + "; prev-id=" + c.PrevID
}
