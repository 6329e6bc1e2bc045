package swapi

import (
	"regexp"
	"strconv"
)

var locatorID = regexp.MustCompile(`/api/\w+/(\d+)/?$`)

// ExtractID returns the numeric identifier at the end of a SWAPI resource
// locator such as https://swapi.info/api/people/1/. ok is false when the
// locator does not have that shape.
func ExtractID(locator string) (id int, ok bool) {
	m := locatorID.FindStringSubmatch(locator)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		// digits that overflow int
		return 0, false
	}
	return id, true
}

// ExtractIDs maps locators to identifiers, dropping the ones that don't parse
func ExtractIDs(locators []string) []int {
	ids := make([]int, 0, len(locators))
	for _, l := range locators {
		if id, ok := ExtractID(l); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
