package model

// AllOption is the filter value meaning "no filter".
const AllOption = "All"

var categoryLabels = map[string]string{
	"Conference":                   "Konferanse",
	"Seminar":                      "Seminar",
	"Webinar":                      "Webinar",
	"Professional Development Day": "Fagdag",
	"Forum":                        "Forum",
	"Workshop":                     "Workshop",
	"Business development":         "Forretningsutvikling",
}

// Categories lists the category values offered by the store's editor.
var Categories = []string{
	"Conference",
	"Seminar",
	"Webinar",
	"Professional Development Day",
	"Forum",
	"Workshop",
	"Business development",
}

// Areas lists the area values offered by the store's editor. Areas are
// displayed verbatim.
var Areas = []string{
	"ÅKP",
	"Blue Maritime Cluster",
	"Blue Legasea",
	"Norwegian Catapult Digital",
	"Mafoss",
	"Collaborators",
}

// CategoryLabel returns the Norwegian display label for a category value.
// Unknown values are returned unchanged.
func CategoryLabel(value string) string {
	if l, ok := categoryLabels[value]; ok {
		return l
	}
	return value
}
