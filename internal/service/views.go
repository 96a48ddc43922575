package service

import (
	"fmt"
	"sort"
)

// View names used in routes and logs.
const (
	ViewDashboard = "dashboard"
	ViewMyData    = "mydata"
)

// Views looks controllers up by view name.
type Views struct {
	byName map[string]*ListController
}

func NewViews(controllers ...*ListController) *Views {
	v := &Views{byName: make(map[string]*ListController, len(controllers))}
	for _, c := range controllers {
		v.byName[c.Name()] = c
	}
	return v
}

func (v *Views) Get(name string) (*ListController, error) {
	c, ok := v.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return c, nil
}

func (v *Views) Names() []string {
	names := make([]string, 0, len(v.byName))
	for name := range v.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
