package domain

import "strings"

// UntitledTask is shown for a task with an empty title.
const UntitledTask = "Untitled"

var markdownMarks = strings.NewReplacer("#", "", "*", "")

// Excerpt strips heading and emphasis marks so content reads cleanly on a card.
func Excerpt(content string) string {
	return markdownMarks.Replace(content)
}

// DisplayTitle returns the title or a placeholder when it is empty.
func DisplayTitle(title string) string {
	if title == "" {
		return UntitledTask
	}
	return title
}

// LogRef is the short reference printed on a card: the id segment after the
// first dash ("task-17" -> "17").
func LogRef(id string) string {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
