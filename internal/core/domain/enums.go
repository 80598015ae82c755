package domain

import (
	"fmt"
	"strings"
)

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      "Low",
	PriorityMedium:   "Medium",
	PriorityHigh:     "High",
	PriorityCritical: "Critical",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Priority(%d)", int(p))
}

func (p Priority) IsValid() bool {
	_, ok := priorityNames[p]
	return ok
}

// ParsePriority accepts the enum name in any case.
func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return p, nil
		}
	}

	return 0, fmt.Errorf("invalid priority %q, expected one of Low, Medium, High, Critical", s)
}

type Category int

const (
	CategoryGeneral Category = iota
	CategoryWork
	CategoryPersonal
	CategoryShopping
	CategoryHealth
	CategoryFinance
	CategoryEducation
	CategoryTravel
)

var categoryNames = []string{"General", "Work", "Personal", "Shopping", "Health", "Finance", "Education", "Travel"}

func (c Category) String() string {
	if c.IsValid() {
		return categoryNames[c]
	}

	return fmt.Sprintf("Category(%d)", int(c))
}

func (c Category) IsValid() bool {
	return c >= CategoryGeneral && int(c) < len(categoryNames)
}

func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Category(i), nil
		}
	}

	return 0, fmt.Errorf("invalid category %q, expected one of %s", s, strings.Join(categoryNames, ", "))
}
