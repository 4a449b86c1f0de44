// Package session tracks the small amount of conversational memory kept
// between text turns: the last book mentioned and the user's topics.
//
// Prior messages are never replayed to the model. Only these derived
// fields carry context from one turn to the next.
package session

import "strings"

// State is the per-conversation memory. The zero value is a fresh session.
// State is not safe for concurrent use; the conversation controller owns it.
type State struct {
	LastEntityID    string   `json:"last_entity_id,omitempty"`
	LastEntityTitle string   `json:"last_entity_title,omitempty"`
	PreferredTopics []string `json:"preferred_topics"`
}

// New returns an empty session.
func New() *State {
	return &State{PreferredTopics: []string{}}
}

// Reset clears all fields, as when the user starts a new chat.
func (s *State) Reset() {
	*s = State{PreferredTopics: []string{}}
}

// HasEntity reports whether both entity fields are set.
func (s *State) HasEntity() bool {
	return s.LastEntityID != "" && s.LastEntityTitle != ""
}

// SetEntity records the most recently mentioned book. Last writer wins.
func (s *State) SetEntity(id, title string) {
	s.LastEntityID = id
	s.LastEntityTitle = title
}

// AddTopic appends a topic if it is not already present.
func (s *State) AddTopic(topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}
	for _, t := range s.PreferredTopics {
		if strings.EqualFold(t, topic) {
			return
		}
	}
	s.PreferredTopics = append(s.PreferredTopics, topic)
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (s *State) Snapshot() State {
	cp := *s
	cp.PreferredTopics = append([]string{}, s.PreferredTopics...)
	return cp
}
