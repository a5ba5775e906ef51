package engine

// HijriMonths names the months of the Hijri calendar, Muharram first.
var HijriMonths = [12]string{
	"Muharram", "Safar", "Rabi' al-awwal", "Rabi' al-thani",
	"Jumada al-ula", "Jumada al-akhira", "Rajab", "Sha'ban",
	"Ramadan", "Shawwal", "Dhu al-Qi'dah", "Dhu al-Hijjah",
}

// HijriMonthName returns the name of month n (1-12), or "" when out of range.
func HijriMonthName(n int) string {
	if n < 1 || n > len(HijriMonths) {
		return ""
	}
	return HijriMonths[n-1]
}

// Observance is a yearly Islamic event on a fixed Hijri date.
type Observance struct {
	Month int
	Day   int
	Name  string
}

// Observances lists the events marked in the feed.
var Observances = []Observance{
	{Month: 9, Day: 1, Name: "Start of Ramadan"},
	{Month: 10, Day: 1, Name: "Eid al-Fitr"},
	{Month: 12, Day: 10, Name: "Eid al-Adha"},
	{Month: 1, Day: 10, Name: "Ashura"},
	{Month: 7, Day: 27, Name: "Isra' and Mi'raj"},
}

// ObservanceOn returns the event falling on the table's Hijri date, if any.
func (t PrayerTimeTable) ObservanceOn() (Observance, bool) {
	if t.HijriMonth == 0 || t.HijriDay == 0 {
		return Observance{}, false
	}
	for _, o := range Observances {
		if o.Month == t.HijriMonth && o.Day == t.HijriDay {
			return o, true
		}
	}
	return Observance{}, false
}
