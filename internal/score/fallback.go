package score

import (
	"fmt"
	"sort"

	"github.com/ppiankov/evidentia/internal/model"
)

// mapFallback rescales the nine legacy 0-5 axes into the five categories
func (s *Scorer) mapFallback(f *model.FallbackScores) (map[string]int, model.Signal) {
	axes := f.Axes()
	maxima := s.rubric.Maxima.ByCategory()

	categories := make([]string, 0, len(maxima))
	for category := range maxima {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	scores := make(map[string]int, len(categories))
	weighted := make(map[string]float64, len(categories))
	for _, category := range categories {
		weights := s.rubric.FallbackMapping[category]
		names := make([]string, 0, len(weights))
		for axis := range weights {
			names = append(names, axis)
		}
		// Fixed summation order keeps float results bit-identical across calls
		sort.Strings(names)

		sum := 0.0
		for _, axis := range names {
			sum += weights[axis] * float64(axes[axis]) / 5
		}
		weighted[category] = sum
		scores[category] = clamp(round(float64(maxima[category])*sum), 0, maxima[category])
	}

	return scores, model.Signal{
		Type:        model.SignalFallbackMapping,
		Severity:    model.SeverityInfo,
		Description: "Legacy axes rescaled into the five scoring categories",
		Data: map[string]interface{}{
			"axes":     axes,
			"weighted": weighted,
			"scores":   scores,
			"formula":  fmt.Sprintf("category = round(max * sum(weight * axis / 5)) [rubric %s]", s.rubric.Version),
		},
	}
}
