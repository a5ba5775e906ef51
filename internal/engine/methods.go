package engine

// Method is a calculation method offered by the time provider.
type Method struct {
	ID   int
	Name string
}

// Methods lists the supported calculation methods by provider id.
var Methods = []Method{
	{1, "University of Islamic Sciences, Karachi"},
	{2, "Islamic Society of North America (ISNA)"},
	{3, "Muslim World League (MWL)"},
	{4, "Umm Al-Qura University, Makkah"},
	{5, "Egyptian General Authority of Survey"},
	{7, "Institute of Geophysics, University of Tehran"},
	{8, "Gulf Region"},
	{9, "Kuwait"},
	{10, "Qatar"},
	{11, "Majlis Ugama Islam Singapura, Singapore"},
	{12, "Union Organization islamic de France"},
}

// Schools lists the juristic schools used for the Asr shadow ratio.
var Schools = []Method{
	{0, "Shafi (Standard)"},
	{1, "Hanafi"},
}

// MethodByID finds a method or school in list.
func MethodByID(list []Method, id int) (Method, bool) {
	for _, m := range list {
		if m.ID == id {
			return m, true
		}
	}
	return Method{}, false
}
