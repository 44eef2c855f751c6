package content

import (
	"strings"

	"github.com/shikshahub/portal/core"
)

// CategoryAll bypasses kind filtering.
const CategoryAll = "all"

// Filter returns the items matching a category and a case-insensitive
// substring search against title and subject. Pure; the input is never
// mutated.
func Filter(items []ContentItem, category, search string) []ContentItem {
	category = core.CleanString(category, true /* lower */)
	search = core.CleanString(search, true /* lower */)

	filtered := make([]ContentItem, 0, len(items))
	for _, item := range items {
		if category != "" && category != CategoryAll && string(item.Kind) != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Title), search) &&
			!strings.Contains(strings.ToLower(item.Subject), search) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

type CategoryCount struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryCounts derives the category tallies displayed next to the
// filter controls, grouped by kind.
func CategoryCounts(items []ContentItem) []CategoryCount {
	byKind := make(map[Kind]int, 4)
	for _, item := range items {
		byKind[item.Kind]++
	}
	return []CategoryCount{
		{Value: CategoryAll, Label: "All Content", Count: len(items)},
		{Value: string(KindLesson), Label: "Lessons", Count: byKind[KindLesson]},
		{Value: string(KindVideo), Label: "Videos", Count: byKind[KindVideo]},
		{Value: string(KindQuiz), Label: "Quizzes", Count: byKind[KindQuiz]},
		{Value: string(KindAudio), Label: "Audio", Count: byKind[KindAudio]},
	}
}
