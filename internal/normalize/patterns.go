package normalize

import "regexp"

// videoTitlePatterns match broadcast schedules, live streams and dated
// program titles that are not articles. A title matching any pattern drops
// the record before normalization.
var videoTitlePatterns = []*regexp.Regexp{
	// Time-slot program listings, e.g. "09:30 ~ 11:00".
	regexp.MustCompile(`\d{1,2}:\d{2}\s*~\s*\d{1,2}:\d{2}`),
	// Live-broadcast tags, bilingual.
	regexp.MustCompile(`(?i)\[\s*(live|다시보기|생방송)\s*\]`),
	regexp.MustCompile(`(?i)(live broadcast|live stream|생방송|생중계|다시보기|풀영상|full video)`),
	// Dated program titles, e.g. "뉴스데스크 (2024.03.15)".
	regexp.MustCompile(`\(\s*\d{4}[.\-/]\s*\d{1,2}[.\-/]\s*\d{1,2}\s*\)\s*$`),
}

// categoryKeywords maps title/hint keywords onto the closed category
// vocabulary. The table is ordered; the first matching keyword wins.
var categoryKeywords = []struct {
	Keyword  string
	Category string
}{
	{"politic", "politics"},
	{"election", "politics"},
	{"parliament", "politics"},
	{"정치", "politics"},
	{"국회", "politics"},
	{"econom", "economy"},
	{"stock market", "economy"},
	{"inflation", "economy"},
	{"finance", "economy"},
	{"경제", "economy"},
	{"증시", "economy"},
	{"crime", "society"},
	{"education", "society"},
	{"welfare", "society"},
	{"사회", "society"},
	{"semiconductor", "it"},
	{"artificial intelligence", "it"},
	{"software", "it"},
	{"startup", "it"},
	{"tech", "it"},
	{"科学", "science"},
	{"science", "science"},
	{"space", "science"},
	{"climate", "science"},
	{"과학", "science"},
	{"museum", "culture"},
	{"festival", "culture"},
	{"heritage", "culture"},
	{"문화", "culture"},
	{"baseball", "sports"},
	{"soccer", "sports"},
	{"football", "sports"},
	{"olympic", "sports"},
	{"sport", "sports"},
	{"스포츠", "sports"},
	{"diplomat", "international"},
	{"united nations", "international"},
	{"international", "international"},
	{"world news", "international"},
	{"국제", "international"},
	{"celebrity", "entertainment"},
	{"k-pop", "entertainment"},
	{"box office", "entertainment"},
	{"entertain", "entertainment"},
	{"연예", "entertainment"},
}

// publishTimeFormats are tried in order by the tolerant date parser. The
// list covers ISO 8601, RFC 2822 and the loose variants feeds emit.
var publishTimeFormats = []string{
	"2006-01-02T15:04:05Z07:00", // RFC 3339
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon, 02 Jan 2006 15:04:05 -0700", // RFC 2822
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// formatHasZone reports whether the layout carries explicit zone
// information; layouts without it are interpreted in the project timezone.
func formatHasZone(layout string) bool {
	for _, marker := range []string{"Z07:00", "-0700", "MST"} {
		if len(layout) >= len(marker) && layout[len(layout)-len(marker):] == marker {
			return true
		}
	}
	return false
}
