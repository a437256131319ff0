package chat

// The helpers below never modify their input: they return new slices so a
// history published to observers stays untouched.

// Append returns a new history with msgs added after history.
func Append(history []Message, msgs ...Message) []Message {
	out := make([]Message, len(history), len(history)+len(msgs))
	copy(out, history)
	return append(out, msgs...)
}

// Truncate returns a copy of the first n messages of history.
func Truncate(history []Message, n int) []Message {
	if n < 0 {
		n = 0
	}
	if n > len(history) {
		n = len(history)
	}
	out := make([]Message, n)
	copy(out, history[:n])
	return out
}

// UpsertTrailing returns a new history ending with msg. When replace is true
// and history is non-empty, msg replaces the last message; otherwise msg is
// appended.
func UpsertTrailing(history []Message, msg Message, replace bool) []Message {
	if replace && len(history) > 0 {
		out := Truncate(history, len(history)-1)
		return append(out, msg)
	}
	return Append(history, msg)
}

// LastIndexFunc returns the index of the last message satisfying fn, or -1.
func LastIndexFunc(history []Message, fn func(Message) bool) int {
	for i := len(history) - 1; i >= 0; i-- {
		if fn(history[i]) {
			return i
		}
	}
	return -1
}

// LastUserIndex returns the index of the most recent user message with the
// given id, or of the most recent user message when id is empty or matches
// nothing. It returns -1 when history has no user message.
func LastUserIndex(history []Message, id string) int {
	if id != "" {
		if i := LastIndexFunc(history, func(m Message) bool { return m.IsUser() && m.ID == id }); i >= 0 {
			return i
		}
	}
	return LastIndexFunc(history, Message.IsUser)
}

// Last returns the most recent message and true, or a zero Message and false
// if history is empty.
func Last(history []Message) (Message, bool) {
	if len(history) == 0 {
		return Message{}, false
	}
	return history[len(history)-1], true
}
