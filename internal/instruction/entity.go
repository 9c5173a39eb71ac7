package instruction

import (
	"regexp"
	"strings"
)

// DefaultID is the reserved identifier of the built-in instruction. It is
// always available and can be neither edited nor deleted.
const DefaultID = "default"

type Instruction struct {
	ID          string
	Name        string
	Description string
	Content     string
	IsDefault   bool
}

const defaultContent = `Implement the task exactly as described.
Follow the existing conventions of the codebase.
Write tests for any behavior you add or change.
Keep the change minimal; do not refactor unrelated code.`

func Default() *Instruction {
	return &Instruction{
		ID:          DefaultID,
		Name:        "Default",
		Description: "Built-in generation instruction",
		Content:     defaultContent,
		IsDefault:   true,
	}
}

var slugPattern = regexp.MustCompile(`[^\p{L}0-9]+`)

// Slugify derives a file-name id from an instruction name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "instruction"
	}
	return slug
}
