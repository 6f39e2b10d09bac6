package dictionary

import "slices"

// Contents is an ordered list of content fields. Titles may repeat; lookups
// use the first match.
type Contents []Content

// Find returns the index and value of the first content titled title.
func (cs Contents) Find(title string) (int, Content, bool) {
	for i, c := range cs {
		if c.Title == title {
			return i, c, true
		}
	}
	return -1, Content{}, false
}

// Has reports whether a content titled title exists.
func (cs Contents) Has(title string) bool {
	_, _, ok := cs.Find(title)
	return ok
}

// Text returns the text of the first content titled title.
func (cs Contents) Text(title string) (string, bool) {
	_, c, ok := cs.Find(title)
	return c.Text, ok
}

// Titles returns all titles in order.
func (cs Contents) Titles() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Title
	}
	return out
}

// Renew replaces the text of the first content titled title. It reports
// whether such a content existed.
func (cs Contents) Renew(title, text string) bool {
	i, _, ok := cs.Find(title)
	if !ok {
		return false
	}
	cs[i].Text = text
	return true
}

// Remove drops the first content titled title.
func (cs Contents) Remove(title string) Contents {
	i, _, ok := cs.Find(title)
	if !ok {
		return cs
	}
	return slices.Delete(cs, i, i+1)
}

// SortByTitle orders contents by the position of their title in order.
// Titles missing from order keep their relative order after the listed ones.
func (cs Contents) SortByTitle(order []string) {
	rank := make(map[string]int, len(order))
	for i, t := range order {
		if _, dup := rank[t]; !dup {
			rank[t] = i
		}
	}
	pos := func(c Content) int {
		if r, ok := rank[c.Title]; ok {
			return r
		}
		return len(order)
	}
	slices.SortStableFunc(cs, func(a, b Content) int { return pos(a) - pos(b) })
}
