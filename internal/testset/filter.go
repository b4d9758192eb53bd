// SPDX-License-Identifier: Apache-2.0

package testset

import (
	"strings"

	"github.com/joomcode/errorx"
)

// Selection is a test set together with the subset of its tests chosen by a
// filter.
type Selection struct {
	Registration
	Selected []Test
}

// ParseFilter resolves a comma separated filter such as
// "BucketTestSet,NodeTestSet.testAddNode" against the registry. A bare test
// set name selects all of its tests; a dotted entry selects a single test.
// An empty filter selects every registered test set. Entries naming the
// same test set are merged in registration order.
func ParseFilter(filter string) ([]Selection, error) {
	if strings.TrimSpace(filter) == "" {
		all := All()
		sels := make([]Selection, 0, len(all))
		for _, reg := range all {
			sels = append(sels, Selection{Registration: reg, Selected: reg.Tests})
		}
		return sels, nil
	}

	// nil marks "all tests"; populated slices accumulate dotted entries.
	picked := map[string][]string{}
	order := []string{}
	for _, entry := range strings.Split(filter, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, test, dotted := strings.Cut(entry, ".")
		if _, ok := Lookup(name); !ok {
			return nil, NewUnknownTestSetError(name)
		}
		if _, seen := picked[name]; !seen {
			order = append(order, name)
		}
		if !dotted {
			picked[name] = nil
			continue
		}
		if test == "" {
			return nil, errorx.IllegalFormat.New("empty test name in filter entry %q", entry)
		}
		if tests, seen := picked[name]; !seen || tests != nil {
			picked[name] = append(picked[name], test)
		}
	}

	sels := make([]Selection, 0, len(order))
	for _, name := range order {
		reg, _ := Lookup(name)
		tests := picked[name]
		if tests == nil {
			sels = append(sels, Selection{Registration: reg, Selected: reg.Tests})
			continue
		}
		sel := Selection{Registration: reg}
		for _, want := range tests {
			test, ok := findTest(reg, want)
			if !ok {
				return nil, NewUnknownTestError(name, want)
			}
			sel.Selected = append(sel.Selected, test)
		}
		sels = append(sels, sel)
	}
	return sels, nil
}

func findTest(reg Registration, name string) (Test, bool) {
	for _, t := range reg.Tests {
		if t.Name == name {
			return t, true
		}
	}
	return Test{}, false
}
