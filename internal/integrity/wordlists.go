package integrity

import "regexp"

// adKeywords flag promotional copy embedded in article bodies.
var adKeywords = []string{
	"buy now", "limited time offer", "click here", "subscribe now",
	"discount code", "sponsored content", "advertisement",
	"할인쿠폰", "무료체험", "지금 구매", "협찬",
}

// illegalKeywords flag content that is spam regardless of anything else.
var illegalKeywords = []string{
	"casino bonus", "online gambling", "viagra", "replica watches",
	"loan approval guaranteed", "crypto giveaway",
	"토토사이트", "카지노", "대출승인",
}

// sensationalTitlePatterns match clickbait title shapes.
var sensationalTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(shocking|unbelievable|you won'?t believe|jaw.?dropping)`),
	regexp.MustCompile(`(충격|경악|발칵|헉|소름)`),
	regexp.MustCompile(`[!?]{2,}`),
	regexp.MustCompile(`(?i)^breaking[:\s]`),
}

// stopwords are function words excluded from content-word comparisons and
// from the lexical-density denominator's numerator.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "this": true, "but": true, "they": true,
	"have": true, "had": true, "which": true, "she": true, "do": true,
	"their": true, "if": true, "or": true, "so": true, "not": true,
	"은": true, "는": true, "이": true, "가": true, "을": true, "를": true,
	"의": true, "에": true, "와": true, "과": true, "도": true, "만": true,
}
