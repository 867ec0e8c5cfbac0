package insights

// stopwords excluded from keyword and co-occurrence extraction.
var stopwords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "their": true,
	"basis": true, "because": true, "been": true, "before": true, "being": true,
	"below": true, "between": true, "both": true, "could": true, "during": true,
	"each": true, "effect": true, "effects": true, "found": true, "from": true,
	"further": true, "have": true, "having": true, "into": true, "itself": true,
	"might": true, "more": true, "most": true, "other": true, "results": true,
	"should": true, "showed": true, "shown": true, "study": true, "studies": true,
	"these": true, "those": true, "through": true, "under": true, "until": true,
	"using": true, "were": true, "where": true, "which": true, "while": true,
	"with": true, "within": true, "without": true, "would": true, "paper": true,
	"research": true, "analysis": true, "based": true, "observed": true,
	"significant": true, "significantly": true, "compared": true, "however": true,
	"among": true,
}

func isStopword(word string) bool {
	return stopwords[word]
}
