package models

import "slices"

// Reaction groups the users who reacted to a post with one emoji.
// An entry with an empty user list must never be persisted; the last
// un-react removes the entry entirely.
type Reaction struct {
	Emoji   string   `json:"emoji"`
	UserIDs []string `json:"user_ids"`
}

// Count returns the number of users behind this reaction entry.
func (r Reaction) Count() int { return len(r.UserIDs) }

// ToggleReaction returns the reaction set after userID toggles emoji:
// a missing entry is created, an existing membership is removed (dropping
// the entry when its user list empties), otherwise the user is appended.
// Toggling twice returns the set to its prior state. The input slice is
// not modified.
func ToggleReaction(reactions []Reaction, userID, emoji string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	found := false
	for _, r := range reactions {
		if r.Emoji != emoji {
			out = append(out, cloneReaction(r))
			continue
		}
		found = true
		if slices.Contains(r.UserIDs, userID) {
			users := make([]string, 0, len(r.UserIDs)-1)
			for _, u := range r.UserIDs {
				if u != userID {
					users = append(users, u)
				}
			}
			if len(users) > 0 {
				out = append(out, Reaction{Emoji: emoji, UserIDs: users})
			}
			// Empty bucket: drop the entry.
		} else {
			users := append(slices.Clone(r.UserIDs), userID)
			out = append(out, Reaction{Emoji: emoji, UserIDs: users})
		}
	}
	if !found {
		out = append(out, Reaction{Emoji: emoji, UserIDs: []string{userID}})
	}
	return out
}

func cloneReaction(r Reaction) Reaction {
	return Reaction{Emoji: r.Emoji, UserIDs: slices.Clone(r.UserIDs)}
}

// CloneReactions deep-copies a reaction set.
func CloneReactions(reactions []Reaction) []Reaction {
	if reactions == nil {
		return nil
	}
	out := make([]Reaction, len(reactions))
	for i, r := range reactions {
		out[i] = cloneReaction(r)
	}
	return out
}
