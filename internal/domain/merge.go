package domain

import (
	"strconv"
	"time"
)

// Mergeable is a message that can be merged into a local view.
type Mergeable interface {
	Identity() string
	Fingerprint() string
}

// MergeByIdentity appends incoming messages to view, skipping any that the
// view already holds. Two entries are the same message when their ids match,
// or, if either has no id yet, when sender, timestamp and content match.
// Distinct sends with identical text keep distinct ids and are both kept.
func MergeByIdentity[T Mergeable](view []T, incoming ...T) []T {
	ids := make(map[string]struct{}, len(view))
	prints := make(map[string]struct{})
	pending := make(map[string]int)
	for i, m := range view {
		if id := m.Identity(); id != "" {
			ids[id] = struct{}{}
			prints[m.Fingerprint()] = struct{}{}
		} else {
			pending[m.Fingerprint()] = i
		}
	}

	for _, m := range incoming {
		id := m.Identity()
		if id == "" {
			if _, ok := prints[m.Fingerprint()]; ok {
				continue
			}
			if _, ok := pending[m.Fingerprint()]; ok {
				continue
			}
			pending[m.Fingerprint()] = len(view)
			view = append(view, m)
			continue
		}

		if _, ok := ids[id]; ok {
			continue
		}
		// The server copy of a local echo replaces it in place.
		if i, ok := pending[m.Fingerprint()]; ok {
			view[i] = m
			delete(pending, m.Fingerprint())
		} else {
			view = append(view, m)
		}
		ids[id] = struct{}{}
		prints[m.Fingerprint()] = struct{}{}
	}
	return view
}

// Anonymous posts carry no author id on the wire.
const anonymousSender = "\x01anonymous"

// senderKey prefers the resolved author, which is serialised, over the raw
// id, which is not.
func senderKey(author Author, rawID string) string {
	if author.ID != "" {
		return author.ID
	}
	return rawID
}

func fingerprint(at time.Time, senderID, content string) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "\x00" + senderID + "\x00" + content
}
