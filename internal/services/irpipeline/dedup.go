package irpipeline

import (
	"strings"

	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// disclosureKeywords names the strict-precedence disclosure families
// spec.md §4.9 step 6 enumerates: business-forecast revisions,
// dividend-forecast revisions, treasury-share actions, M&A, personnel
// changes, capital events, litigation, administrative actions.
var disclosureKeywords = []string{
	"業績予想", "業績予想の修正", // business-forecast revision
	"配当予想", "配当予想の修正", // dividend-forecast revision
	"自己株式", // treasury-share actions
	"合併", "買収", "M&A", "株式交換", "会社分割", // M&A
	"人事異動", "役員人事", // personnel changes
	"増資", "減資", "自社株買い", // capital events
	"訴訟", "損害賠償", // litigation
	"行政処分", "改善命令", // administrative action
}

// earningsKeywords names the financial-results family.
var earningsKeywords = []string{
	"決算短信", "決算説明", "四半期決算", "通期決算", "決算補足", "業績",
}

// newsKeywords names the general investor-news family.
var newsKeywords = []string{
	"お知らせ", "ニュース", "news", "トピックス",
}

func titleMatchesAny(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// keywordScore implements spec.md §4.9 step 5's dedup scoring rule:
// +2 if the title matches the keyword family for category, else 0.
func keywordScore(title string, category models.IRCategory) int {
	switch category {
	case models.IRCategoryDisclosures:
		if titleMatchesAny(title, disclosureKeywords) {
			return 2
		}
	case models.IRCategoryEarnings:
		if titleMatchesAny(title, earningsKeywords) {
			return 2
		}
	case models.IRCategoryNews:
		if titleMatchesAny(title, newsKeywords) {
			return 2
		}
	}
	return 0
}

// dedupeByURL groups documents by URL, preserving first-seen group order,
// and within each group keeps the document whose category best fits its
// title by keywordScore, ties falling through to the first entry
// (spec.md §4.9 step 5, ordering guarantee §5).
func dedupeByURL(docs []models.IRDocument) []models.IRDocument {
	order := make([]string, 0, len(docs))
	groups := make(map[string][]models.IRDocument)
	for _, d := range docs {
		if _, ok := groups[d.URL]; !ok {
			order = append(order, d.URL)
		}
		groups[d.URL] = append(groups[d.URL], d)
	}

	out := make([]models.IRDocument, 0, len(order))
	for _, u := range order {
		group := groups[u]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		best := group[0]
		bestScore := keywordScore(best.Title, best.Category)
		for _, cand := range group[1:] {
			if score := keywordScore(cand.Title, cand.Category); score > bestScore {
				best, bestScore = cand, score
			}
		}
		out = append(out, best)
	}
	return out
}

// reclassify implements spec.md §4.9 step 6's strict-precedence
// reclassification: disclosure keywords first, then earnings, then news;
// ambiguous titles default to disclosures.
func reclassify(docs []models.IRDocument) []models.IRDocument {
	out := make([]models.IRDocument, len(docs))
	for i, d := range docs {
		switch {
		case titleMatchesAny(d.Title, disclosureKeywords):
			d.Category = models.IRCategoryDisclosures
		case titleMatchesAny(d.Title, earningsKeywords):
			d.Category = models.IRCategoryEarnings
		case titleMatchesAny(d.Title, newsKeywords):
			d.Category = models.IRCategoryNews
		default:
			d.Category = models.IRCategoryDisclosures
		}
		out[i] = d
	}
	return out
}
