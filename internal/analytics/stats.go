// Package analytics computes corpus-level statistics for the dashboard
// endpoints.
package analytics

import (
	"sort"
	"strings"

	"github.com/spacebio/backend/internal/storage/models"
)

// Topics is the fixed research-topic taxonomy used for distribution charts.
var Topics = []string{
	"Microgravity",
	"Bone Loss",
	"Stem Cells",
	"Gene Expression",
	"Radiation",
	"Muscle Atrophy",
	"Cardiovascular",
	"Plant Growth",
	"Microbiome",
	"Immune System",
}

const topicLimit = 10

// Stats summarizes the loaded corpus. A publication counts as analyzed
// once it carries a non-empty summary.
type Stats struct {
	TotalPublications    int `json:"totalPublications"`
	AnalyzedPublications int `json:"analyzedPublications"`
}

// TopicCount is one slice of the topic distribution.
type TopicCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func ComputeStats(pubs []models.Publication) Stats {
	s := Stats{TotalPublications: len(pubs)}
	for _, p := range pubs {
		if strings.TrimSpace(p.Summary) != "" {
			s.AnalyzedPublications++
		}
	}
	return s
}

// TopicDistribution counts, per taxonomy topic, the publications whose
// title or abstract mention it. Topics nothing mentions are dropped; the
// rest sort by count descending, capped at ten.
func TopicDistribution(pubs []models.Publication) []TopicCount {
	counts := make(map[string]int, len(Topics))
	for _, p := range pubs {
		text := strings.ToLower(p.Title + " " + p.Abstract)
		for _, topic := range Topics {
			if strings.Contains(text, strings.ToLower(topic)) {
				counts[topic]++
			}
		}
	}

	out := make([]TopicCount, 0, len(counts))
	for _, topic := range Topics {
		if n, ok := counts[topic]; ok {
			out = append(out, TopicCount{Name: topic, Value: n})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })

	if len(out) > topicLimit {
		out = out[:topicLimit]
	}
	return out
}
