package audio

// Voice is an adhan recording offered for dispatch and preview.
type Voice struct {
	ID      string
	Name    string
	Muezzin string
	URL     string
}

// Catalog is the ordered list of available voices.
type Catalog []Voice

// DefaultCatalog lists the bundled adhan recordings.
var DefaultCatalog = Catalog{
	{ID: "makkah", Name: "Makkah Adhan", Muezzin: "Sheikh Ali Mullah", URL: "https://www.islamcan.com/audio/adhan/azan1.mp3"},
	{ID: "madinah", Name: "Madinah Adhan", Muezzin: "Sheikh Essam Bukhari", URL: "https://www.islamcan.com/audio/adhan/azan2.mp3"},
	{ID: "mishary", Name: "Mishary Rashid", Muezzin: "Sheikh Mishary Rashid Alafasy", URL: "https://www.islamcan.com/audio/adhan/azan3.mp3"},
	{ID: "alaqsa", Name: "Al-Aqsa Adhan", Muezzin: "Al-Aqsa Mosque", URL: "https://www.islamcan.com/audio/adhan/azan4.mp3"},
	{ID: "egypt", Name: "Egyptian Adhan", Muezzin: "Egyptian Style", URL: "https://www.islamcan.com/audio/adhan/azan5.mp3"},
}

// Lookup finds a voice by id.
func (c Catalog) Lookup(id string) (Voice, bool) {
	for _, v := range c {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}
