// Package dimension builds D365 F&O positional account display values from
// named financial dimension segments.
package dimension

import "strings"

// Format describes how an account display value is assembled: the ordered
// segment names and the delimiter joining them. It is fetched once per import
// batch and shared across all lines of that batch.
type Format struct {
	Delimiter string
	Segments  []string
}

// Composer assembles a delimited account display value from named segment
// values. A Composer is single-use per batch and not safe for concurrent use;
// Initialize must be called before Add or Build.
type Composer struct {
	format *Format
	values map[string]string
}

// NewComposer creates an uninitialized composer.
func NewComposer() *Composer {
	return &Composer{values: make(map[string]string)}
}

// Initialize resets the composer and stores the segment order and delimiter.
func (c *Composer) Initialize(format *Format) {
	c.Clear()
	c.format = format
}

// Add stores or overwrites the value for a named segment. Empty or
// whitespace-only names and values are ignored: an omitted dimension is a
// valid state, not an error, and must still produce its positional
// placeholder in Build.
func (c *Composer) Add(segment, value string) {
	segment = strings.TrimSpace(segment)
	value = strings.TrimSpace(value)
	if segment == "" || value == "" {
		return
	}
	c.values[segment] = value
}

// Build returns the display value: the stored value for every segment, in
// format order, joined by the delimiter. Segments without a value contribute
// an empty placeholder, so a format [A B C] with only B set yields "-X-".
// Returns "" if the composer was never initialized or the format is empty.
func (c *Composer) Build() string {
	if c.format == nil || len(c.format.Segments) == 0 {
		return ""
	}

	parts := make([]string, len(c.format.Segments))
	for i, segment := range c.format.Segments {
		parts[i] = c.values[segment]
	}
	return strings.Join(parts, c.format.Delimiter)
}

// Clear resets all state, enabling reuse for another batch.
func (c *Composer) Clear() {
	c.format = nil
	c.values = make(map[string]string)
}
