package insights

import (
	"strings"

	"github.com/spacebio/backend/internal/retriever"
	"github.com/spacebio/backend/internal/storage/models"
)

// RelevantCap bounds how many publications feed the graph.
const RelevantCap = 12

// titlePrefixLen is the prefix-overlap window used to match source titles
// against publication text.
const titlePrefixLen = 50

// Node kinds mirror the visualization contract.
const (
	NodeQuery       = "query"
	NodePublication = "publication"
	NodeKeyword     = "keyword"
	NodeContext     = "context"
)

type Node struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Val  int    `json:"val"`
}

type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// RelevantPublications filters the corpus down to publications related to
// the query: either their combined text contains a 50-character prefix of a
// supplied source title, or it contains any query term longer than three
// characters. The result is capped at RelevantCap in corpus order.
func RelevantPublications(pubs []models.Publication, query string, sources []retriever.Source) []models.Publication {
	queryTerms := make([]string, 0)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if len(term) > 3 {
			queryTerms = append(queryTerms, term)
		}
	}

	titlePrefixes := make([]string, 0, len(sources))
	for _, source := range sources {
		prefix := strings.ToLower(source.Title)
		if len(prefix) > titlePrefixLen {
			prefix = prefix[:titlePrefixLen]
		}
		if prefix != "" {
			titlePrefixes = append(titlePrefixes, prefix)
		}
	}

	relevant := make([]models.Publication, 0, RelevantCap)
	for _, pub := range pubs {
		if len(relevant) >= RelevantCap {
			break
		}

		text := strings.ToLower(pub.Title + " " + pub.Abstract + " " + pub.Summary)

		matched := false
		for _, prefix := range titlePrefixes {
			if strings.Contains(text, prefix) {
				matched = true
				break
			}
		}
		if !matched {
			for _, term := range queryTerms {
				if strings.Contains(text, term) {
					matched = true
					break
				}
			}
		}

		if matched {
			relevant = append(relevant, pub)
		}
	}

	return relevant
}

// BuildGraph assembles the per-request knowledge graph: a center node for
// the query, one node per relevant publication linked to the query, keyword
// nodes linked to every publication mentioning them (one link per
// publication-keyword pair), and context-term nodes linked to the query.
func BuildGraph(query string, pubs []models.Publication, keywords, contextTerms []Keyword) Graph {
	graph := Graph{
		Nodes: []Node{{ID: "query", Name: query, Type: NodeQuery, Val: 20}},
		Links: []Link{},
	}

	pubTexts := make(map[string]string, len(pubs))
	for _, pub := range pubs {
		graph.Nodes = append(graph.Nodes, Node{
			ID:   pub.ID,
			Name: truncateName(pub.Title, 40),
			Type: NodePublication,
			Val:  5,
		})
		graph.Links = append(graph.Links, Link{Source: "query", Target: pub.ID})
		pubTexts[pub.ID] = strings.ToLower(pub.Title + " " + pub.Abstract)
	}

	for _, keyword := range keywords {
		nodeID := "keyword-" + keyword.Word

		linked := false
		for _, pub := range pubs {
			if strings.Contains(pubTexts[pub.ID], keyword.Word) {
				if !linked {
					graph.Nodes = append(graph.Nodes, Node{
						ID:   nodeID,
						Name: keyword.Word,
						Type: NodeKeyword,
						Val:  keyword.Count + 5,
					})
					linked = true
				}
				graph.Links = append(graph.Links, Link{Source: pub.ID, Target: nodeID})
			}
		}
	}

	for _, term := range contextTerms {
		nodeID := "context-" + term.Word
		graph.Nodes = append(graph.Nodes, Node{
			ID:   nodeID,
			Name: term.Word,
			Type: NodeContext,
			Val:  term.Count + 3,
		})
		graph.Links = append(graph.Links, Link{Source: "query", Target: nodeID})
	}

	return graph
}

func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return name[:max] + "..."
}
