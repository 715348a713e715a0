package relevance

// synonyms maps a query keyword to its aliases: bilingual equivalents and
// closely related domain terms. The table is data; extending it changes no
// scoring behaviour.
var synonyms = map[string][]string{
	"ai":            {"artificial intelligence", "인공지능", "machine learning"},
	"economy":       {"경제", "economic", "markets"},
	"election":      {"선거", "vote", "ballot"},
	"semiconductor": {"반도체", "chip", "chipmaker"},
	"climate":       {"기후", "climate change", "global warming"},
	"football":      {"soccer", "축구"},
	"baseball":      {"야구"},
	"startup":       {"스타트업", "venture"},
	"stocks":        {"주식", "stock market", "equities"},
	"president":     {"대통령"},
	"government":    {"정부", "administration"},
	"technology":    {"기술", "tech"},
	"battery":       {"배터리", "이차전지"},
	"interest rate": {"금리", "rate hike", "rate cut"},
	"inflation":     {"물가", "인플레이션"},
	"export":        {"수출"},
	"olympics":      {"올림픽"},
	"entertainment": {"연예", "celebrity"},
}

// expand returns the keyword itself followed by its synonyms.
func expand(keyword string) []string {
	terms := []string{keyword}
	if aliases, ok := synonyms[keyword]; ok {
		terms = append(terms, aliases...)
	}
	return terms
}
