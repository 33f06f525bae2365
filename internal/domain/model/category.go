package model

import "strings"

// Category is a purchase category label.
type Category string

// Known categories. Anything else is bucketed into CategoryOther.
const (
	CategoryFood          Category = "food"
	CategorySnack         Category = "snack"
	CategoryEntertainment Category = "entertainment"
	CategoryToy           Category = "toy"
	CategoryEducation     Category = "education"
	CategoryOther         Category = "other"
)

// Categories lists the known categories in their canonical order.
var Categories = [...]Category{
	CategoryFood,
	CategorySnack,
	CategoryEntertainment,
	CategoryToy,
	CategoryEducation,
	CategoryOther,
}

// ParseCategory normalizes a label. Upper-case store labels are accepted and
// "etc" is an alias of other; unknown labels map to other.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Category(s) {
	case CategoryFood, CategorySnack, CategoryEntertainment, CategoryToy, CategoryEducation:
		return Category(s)
	default:
		return CategoryOther
	}
}

// Index returns the position of c in Categories.
func (c Category) Index() int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return len(Categories) - 1
}

// UnmarshalText normalizes on decode.
func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}
